package guardian

import (
	"context"
	"encoding/json"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/internal"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/jackc/pgx/v4"
)

type guardianPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.GuardianInterface {
	return &guardianPG{pool: pool}
}

const columns = `
	"id", "attached_claim_id", "policy", "document", "request_id",
	"state", "attempts", "next_attempt_at", "message"
`

func scan(row pgx.Row) (fdb.Submission, error) {
	s := fdb.Submission{}
	var doc []byte
	if err := row.Scan(
		&s.Id, &s.AttachedClaimId, &s.Policy, &doc, &s.RequestId,
		&s.State, &s.Attempts, &s.NextAttemptAt, &s.Message,
	); err != nil {
		return s, err
	}
	s.Document = json.RawMessage(doc)
	return s, nil
}

func (g *guardianPG) Get(ctx context.Context, attachedClaimId string) ([]fdb.Submission, error) {
	rows, err := g.pool.Query(
		ctx,
		`select `+columns+` from "guardian_submission"
		where "attached_claim_id" = $1 order by "next_attempt_at", "id"`,
		attachedClaimId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	subs := []fdb.Submission{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		subs = append(subs, s)
	}
	return subs, xe.Wrap(rows.Err())
}

func (g *guardianPG) Pop(ctx context.Context, now time.Time, f func(fdb.Submission) fdb.SubmissionUpdate) (bool, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	popped, err := scan(tx.QueryRow(
		ctx,
		`
		select `+columns+` from "guardian_submission"
		where "state" in ($1, $2) and "next_attempt_at" <= $3
		order by "next_attempt_at"
		limit 1
		for update skip locked
		`,
		fdb.SubmissionQueued, fdb.SubmissionSubmitted, now,
	))
	if err == pgx.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, xe.Wrap(err)
	}

	update := f(popped)

	next := popped
	if update.State != "" {
		next.State = update.State
	}
	if update.RequestId != "" {
		next.RequestId = update.RequestId
	}
	if update.Message != "" {
		next.Message = update.Message
	}
	if update.Attempt.Err != nil {
		next.Attempts += 1
	}
	if update.Attempt.Failure != nil {
		next.State = fdb.SubmissionFailed
		next.Attempts += 1
		if update.Message == "" {
			next.Message = update.Attempt.Failure.Error()
		}
	}
	if update.Attempt.RetryAt != nil {
		next.NextAttemptAt = *update.Attempt.RetryAt
	}

	if _, err := tx.Exec(
		ctx,
		`
		update "guardian_submission"
		set "state" = $2, "request_id" = $3, "message" = $4, "attempts" = $5, "next_attempt_at" = $6
		where "id" = $1
		`,
		next.Id, next.State, next.RequestId, next.Message, next.Attempts, next.NextAttemptAt,
	); err != nil {
		return false, xe.Wrap(err)
	}

	if next.State.Terminal() {
		approved := next.State == fdb.SubmissionApproved
		if _, err := internal.ResolvePolicy(ctx, tx, next.AttachedClaimId, approved, now); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, xe.Wrap(err)
	}
	return true, nil
}
