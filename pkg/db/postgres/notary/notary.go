package notary

import (
	"context"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/jackc/pgx/v4"
)

type notaryPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.NotaryInterface {
	return &notaryPG{pool: pool}
}

const columns = `
	"transaction_id", "hash", "status", "attempts", "next_attempt_at",
	"topic_id", "sequence_number", "consensus_at", "error"
`

func scan(row pgx.Row) (fdb.Notarization, error) {
	n := fdb.Notarization{}
	r := fdb.Receipt{}
	var consensusAt *time.Time
	if err := row.Scan(
		&n.TransactionId, &n.Hash, &n.Status, &n.Attempts, &n.NextAttemptAt,
		&r.TopicId, &r.SequenceNumber, &consensusAt, &n.Error,
	); err != nil {
		return n, err
	}
	if consensusAt != nil {
		r.ConsensusAt = *consensusAt
		n.Receipt = &r
	}
	return n, nil
}

func (n *notaryPG) Get(ctx context.Context, transactionIds []string) (map[string]fdb.Notarization, error) {
	rows, err := n.pool.Query(
		ctx,
		`select `+columns+` from "notarization" where "transaction_id" = any($1::text[])`,
		transactionIds,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ret := map[string]fdb.Notarization{}
	for rows.Next() {
		nt, err := scan(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		ret[nt.TransactionId] = nt
	}
	return ret, xe.Wrap(rows.Err())
}

func (n *notaryPG) Pop(ctx context.Context, now time.Time, f func(fdb.Notarization) (*fdb.Receipt, fdb.Attempt)) (bool, error) {
	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	popped, err := scan(tx.QueryRow(
		ctx,
		`
		select `+columns+` from "notarization"
		where "status" = $1 and "next_attempt_at" <= $2
		order by "next_attempt_at"
		limit 1
		for update skip locked
		`,
		fdb.NotarizationPending, now,
	))
	if err == pgx.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, xe.Wrap(err)
	}

	receipt, attempt := f(popped)
	switch {
	case receipt != nil:
		_, err = tx.Exec(
			ctx,
			`
			update "notarization"
			set "status" = $2, "topic_id" = $3, "sequence_number" = $4, "consensus_at" = $5, "error" = ''
			where "transaction_id" = $1
			`,
			popped.TransactionId, fdb.NotarizationNotarized,
			receipt.TopicId, receipt.SequenceNumber, receipt.ConsensusAt,
		)
	case attempt.Failure != nil:
		_, err = tx.Exec(
			ctx,
			`
			update "notarization"
			set "status" = $2, "attempts" = "attempts" + 1, "error" = $3
			where "transaction_id" = $1
			`,
			popped.TransactionId, fdb.NotarizationFailed, attempt.Failure.Error(),
		)
	default:
		next := now
		if attempt.RetryAt != nil {
			next = *attempt.RetryAt
		}
		message := ""
		increment := 0
		if attempt.Err != nil {
			message = attempt.Err.Error()
			increment = 1
		}
		_, err = tx.Exec(
			ctx,
			`
			update "notarization"
			set "attempts" = "attempts" + $2, "next_attempt_at" = $3, "error" = $4
			where "transaction_id" = $1
			`,
			popped.TransactionId, increment, next, message,
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
