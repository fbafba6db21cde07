package guardian

import (
	"context"
	"time"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/guardian"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: advance a due submission to the policy engine by one step.
func Task(dbGuardian fdb.GuardianInterface, client guardian.Client, policy retry.Policy, clock func() time.Time) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		now := clock()
		pop, err := dbGuardian.Pop(ctx, now, func(s fdb.Submission) fdb.SubmissionUpdate {
			return guardian.Step(ctx, client, policy, now, s)
		})
		return value, pop, err
	}
}
