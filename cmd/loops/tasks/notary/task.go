package notary

import (
	"context"
	"time"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/lock"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

// LockKey is held while a notarization is submitted.
const LockKey = "lock:notary"

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: submit a due notarization, holding the lock.
// When the lock is held by another process, it does nothing.
func Task(
	locker lock.Locker,
	dbNotary fdb.NotaryInterface,
	client notary.Client,
	topic string,
	policy retry.Policy,
	clock func() time.Time,
) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		pop := false
		_, err := locker.Run(ctx, LockKey, func(ctx context.Context) error {
			now := clock()
			popped, err := dbNotary.Pop(ctx, now, func(n fdb.Notarization) (*fdb.Receipt, fdb.Attempt) {
				return notary.Step(ctx, client, topic, policy, now, n)
			})
			pop = popped
			return err
		})
		return value, pop, err
	}
}
