package try_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fairtrace/fairtrace/pkg/utils/try"
)

type fatalRecorder struct {
	called []any
}

func (f *fatalRecorder) Fatal(v ...any) {
	f.called = append(f.called, v...)
}

func TestTo(t *testing.T) {
	t.Run("when error is nil, OrFatal returns the value without calling Fatal", func(t *testing.T) {
		rec := &fatalRecorder{}
		if got := try.To(42, nil).OrFatal(rec); got != 42 {
			t.Errorf("unexpected value: %d", got)
		}
		if len(rec.called) != 0 {
			t.Errorf("Fatal is called: %v", rec.called)
		}
	})

	t.Run("when error is not nil, OrFatal calls Fatal with the error", func(t *testing.T) {
		rec := &fatalRecorder{}
		expected := errors.New("fake")
		try.To(42, expected).OrFatal(rec)
		if len(rec.called) != 1 || rec.called[0] != expected {
			t.Errorf("Fatal is not called with error: %v", rec.called)
		}
	})

	t.Run("OrDefault gives the default only for errors", func(t *testing.T) {
		if got := try.To(1, errors.New("x")).OrDefault(7); got != 7 {
			t.Errorf("unexpected: %d", got)
		}
		if got := try.To(1, nil).OrDefault(7); got != 1 {
			t.Errorf("unexpected: %d", got)
		}
	})

	t.Run("Map converts only ok values", func(t *testing.T) {
		v, err := try.Map(try.To(3, nil), func(i int) string { return fmt.Sprint(i * 2) }).Get()
		if err != nil || v != "6" {
			t.Errorf("unexpected: %q, %v", v, err)
		}
		expected := errors.New("fake")
		if _, err := try.Map(try.To(3, expected), func(i int) string { return fmt.Sprint(i) }).Get(); !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
