// Package loop runs a task repeatedly, carrying a value from one round to the next.
//
// Loops of fairtrace-loops (reports, guardian, notary and outbox) are built on Start:
//
//	seen, err := loop.Start(ctx, 0, func(ctx context.Context, seen int) (int, loop.Next) {
//		n, err := step(ctx)
//		if err != nil {
//			return seen, loop.Break(err)
//		}
//		if n == 0 {
//			return seen, loop.Continue(10 * time.Second) // backlog is empty
//		}
//		return seen + n, loop.Continue(0)
//	}, loop.WithTimeout(30*time.Second))
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a round.
//
// The zero value continues immediately.
type Next struct {
	stop     bool
	err      error
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("break (error: %v)", n.err)
	case n.stop:
		return "break"
	default:
		return fmt.Sprintf("continue after %s", n.interval)
	}
}

// Continue runs the next round after interval.
func Continue(interval time.Duration) Next {
	if interval < 0 {
		interval = 0
	}
	return Next{interval: interval}
}

// Break stops the loop. err is returned from Start as is, and nil means a normal stop.
func Break(err error) Next {
	return Next{stop: true, err: err}
}

// Task is a round of a loop.
//
// It receives the value returned by the last round (or the initial value of Start).
type Task[T any] func(context.Context, T) (T, Next)

type options struct {
	timeout time.Duration
}

type Option func(*options)

// WithTimeout limits each round to d. The context passed to Task carries the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Start runs task until it breaks or ctx is done.
//
// It returns the value of the last round, and the error of Break or of ctx.
// When ctx is done before starting, task is never called and init is returned.
func Start[T any](ctx context.Context, init T, task Task[T], opts ...Option) (T, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	value := init
	for {
		if err := ctx.Err(); err != nil {
			return value, err
		}

		v, next := round(ctx, o, value, task)
		if next.stop {
			return v, next.err
		}
		value = v

		if next.interval == 0 {
			continue
		}
		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

func round[T any](ctx context.Context, o *options, value T, task Task[T]) (T, Next) {
	if o.timeout <= 0 {
		return task(ctx, value)
	}
	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return task(rctx, value)
}
