package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/pkg/loop"
)

func TestStart(t *testing.T) {
	t.Run("it carries the value over rounds until the task breaks", func(t *testing.T) {
		got, err := loop.Start(context.Background(), 1, func(_ context.Context, v int) (int, loop.Next) {
			if 10 <= v {
				return v, loop.Break(nil)
			}
			return v + 1, loop.Continue(0)
		})
		if err != nil {
			t.Fatal(err)
		}
		if got != 10 {
			t.Errorf("value: %d", got)
		}
	})

	t.Run("when the task breaks with error, it returns the error and the value of the round", func(t *testing.T) {
		expected := errors.New("fake error")
		got, err := loop.Start(context.Background(), "seed", func(_ context.Context, v string) (string, loop.Next) {
			return v + "!", loop.Break(expected)
		})
		if !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
		if got != "seed!" {
			t.Errorf("value: %s", got)
		}
	})

	t.Run("when the context is done before starting, it does not call the task", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		got, err := loop.Start(ctx, 3, func(_ context.Context, v int) (int, loop.Next) {
			called = true
			return v, loop.Break(nil)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if called || got != 3 {
			t.Errorf("called = %v, value = %d", called, got)
		}
	})

	t.Run("when the context is done while waiting interval, it stops without waiting to the end", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		rounds := 0
		begin := time.Now()
		_, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			rounds += 1
			return v, loop.Continue(time.Hour)
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unexpected error: %v", err)
		}
		if rounds != 1 {
			t.Errorf("rounds: %d", rounds)
		}
		if elapsed := time.Since(begin); 10*time.Second < elapsed {
			t.Errorf("it waited too long: %s", elapsed)
		}
	})

	t.Run("when the task continues with interval, rounds are separated by it", func(t *testing.T) {
		interval := 20 * time.Millisecond
		stamps := []time.Time{}
		_, err := loop.Start(context.Background(), 0, func(_ context.Context, v int) (int, loop.Next) {
			stamps = append(stamps, time.Now())
			if v == 2 {
				return v, loop.Break(nil)
			}
			return v + 1, loop.Continue(interval)
		})
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(stamps); i++ {
			if d := stamps[i].Sub(stamps[i-1]); d < interval {
				t.Errorf("round %d started %s after the last", i, d)
			}
		}
	})

	t.Run("when WithTimeout is given, each round has its own deadline", func(t *testing.T) {
		deadlines := []time.Time{}
		_, err := loop.Start(context.Background(), 0, func(ctx context.Context, v int) (int, loop.Next) {
			d, ok := ctx.Deadline()
			if !ok {
				t.Error("context has no deadline")
			}
			deadlines = append(deadlines, d)
			if v == 1 {
				return v, loop.Break(nil)
			}
			time.Sleep(5 * time.Millisecond)
			return v + 1, loop.Continue(0)
		}, loop.WithTimeout(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if len(deadlines) != 2 || !deadlines[0].Before(deadlines[1]) {
			t.Errorf("deadlines: %v", deadlines)
		}
	})

	t.Run("when WithTimeout is not given, the context has no deadline", func(t *testing.T) {
		loop.Start(context.Background(), 0, func(ctx context.Context, v int) (int, loop.Next) {
			if _, ok := ctx.Deadline(); ok {
				t.Error("context has deadline")
			}
			return v, loop.Break(nil)
		})
	})
}

func TestNext_String(t *testing.T) {
	for name, testcase := range map[string]struct {
		when loop.Next
		then string
	}{
		"when it is zero, it continues immediately": {when: loop.Next{}, then: "continue after 0s"},
		"when it continues with negative interval, it is 0": {
			when: loop.Continue(-time.Second), then: "continue after 0s",
		},
		"when it breaks": {when: loop.Break(nil), then: "break"},
		"when it breaks with error": {
			when: loop.Break(errors.New("oops")), then: "break (error: oops)",
		},
	} {
		t.Run(name, func(t *testing.T) {
			if got := testcase.when.String(); got != testcase.then {
				t.Errorf("got %q, want %q", got, testcase.then)
			}
		})
	}
}
