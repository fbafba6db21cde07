package outbox

import (
	"context"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

// Publish publishes messages and returns ids of published ones.
type Publish func(context.Context, []fdb.OutboxMessage) ([]string, error)

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: publish up to limit messages in the outbox.
// There can be more backlog while a full batch is published.
func Task(dbOutbox fdb.OutboxInterface, publish Publish, limit int) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		n, err := dbOutbox.Pop(ctx, limit, func(messages []fdb.OutboxMessage) ([]string, error) {
			return publish(ctx, messages)
		})
		return value, limit <= n, err
	}
}
