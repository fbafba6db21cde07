package report

import (
	"context"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

// initial value for task
func Seed() any {
	return nil
}

// Generate makes the file of a job and returns its path.
type Generate func(context.Context, fdb.ReportJob) (string, error)

// return:
//
// - task: generate a queued report
func Task(dbReport fdb.ReportInterface, generate Generate) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		pop, err := dbReport.Pop(ctx, func(job fdb.ReportJob) (string, error) {
			return generate(ctx, job)
		})
		return value, pop, err
	}
}
