package recurring

import (
	"context"

	"github.com/fairtrace/fairtrace/pkg/loop"
)

// Task is a round of work of fairtrace-loops.
//
// It returns the value for the next round, whether it has processed something
// (then more backlog may remain), and an error of the round.
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied makes a loop.Task which asks p what to do after each round.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		next, worked, err := rt(ctx, t)
		return next, p.Next(worked, err)
	}
}
