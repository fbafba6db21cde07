package reports

import (
	"context"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type reportsPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.ReportInterface {
	return &reportsPG{pool: pool}
}

const columns = `
	"id", "node_id", "kind", "since", "until", "status", "file", "error", "created_at", "updated_at"
`

func scan(row pgx.Row) (fdb.ReportJob, error) {
	j := fdb.ReportJob{}
	err := row.Scan(
		&j.Id, &j.NodeId, &j.Kind, &j.Since, &j.Until, &j.Status, &j.File, &j.Error,
		&j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

func (r *reportsPG) Request(ctx context.Context, param fdb.ReportParam) (fdb.ReportJob, error) {
	param, err := param.Validate()
	if err != nil {
		return fdb.ReportJob{}, err
	}
	j, err := scan(r.pool.QueryRow(
		ctx,
		`
		insert into "report_job" ("id", "node_id", "kind", "since", "until", "status")
		values ($1, $2, $3, $4, $5, $6)
		returning `+columns,
		uuid.NewString(), param.NodeId, param.Kind, param.Since, param.Until, fdb.ReportQueued,
	))
	if err != nil {
		return fdb.ReportJob{}, xe.Wrap(pgerrors.Translate(err, "report_job", param.NodeId))
	}
	return j, nil
}

func (r *reportsPG) Get(ctx context.Context, id string) (fdb.ReportJob, error) {
	j, err := scan(r.pool.QueryRow(ctx, `select `+columns+` from "report_job" where "id" = $1`, id))
	if err != nil {
		return fdb.ReportJob{}, xe.Wrap(pgerrors.Translate(err, "report_job", id))
	}
	return j, nil
}

func (r *reportsPG) Pop(ctx context.Context, f func(fdb.ReportJob) (string, error)) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	job, err := scan(tx.QueryRow(
		ctx,
		`
		update "report_job" set "status" = $1, "updated_at" = now()
		where "id" = (
			select "id" from "report_job" where "status" = $2
			order by "created_at" limit 1
			for update skip locked
		)
		returning `+columns,
		fdb.ReportRunning, fdb.ReportQueued,
	))
	if err == pgx.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, xe.Wrap(err)
	}

	file, ferr := f(job)
	if ferr != nil {
		_, err = tx.Exec(
			ctx,
			`update "report_job" set "status" = $2, "error" = $3, "updated_at" = now() where "id" = $1`,
			job.Id, fdb.ReportFailed, ferr.Error(),
		)
	} else {
		_, err = tx.Exec(
			ctx,
			`update "report_job" set "status" = $2, "file" = $3, "updated_at" = now() where "id" = $1`,
			job.Id, fdb.ReportDone, file,
		)
	}
	if err != nil {
		return false, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, xe.Wrap(err)
	}
	return true, nil
}
