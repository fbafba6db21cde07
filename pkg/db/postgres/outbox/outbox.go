package outbox

import (
	"context"
	"encoding/json"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
)

type outboxPG struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) fdb.OutboxInterface {
	return &outboxPG{pool: pool}
}

func (o *outboxPG) Pop(ctx context.Context, limit int, f func([]fdb.OutboxMessage) ([]string, error)) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "id", "topic", "payload", "created_at" from "outbox"
		where "published_at" is null
		order by "created_at", "id"
		limit $1
		for update skip locked
		`,
		limit,
	)
	if err != nil {
		return 0, xe.Wrap(err)
	}
	defer rows.Close()

	messages := []fdb.OutboxMessage{}
	for rows.Next() {
		m := fdb.OutboxMessage{}
		var payload []byte
		if err := rows.Scan(&m.Id, &m.Topic, &payload, &m.CreatedAt); err != nil {
			return 0, xe.Wrap(err)
		}
		m.Payload = json.RawMessage(payload)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return 0, xe.Wrap(err)
	}
	rows.Close()

	if len(messages) == 0 {
		return 0, nil
	}

	// messages published before an error are marked, so they are not published twice.
	published, ferr := f(messages)
	if len(published) != 0 {
		if _, err := tx.Exec(
			ctx,
			`update "outbox" set "published_at" = now() where "id" = any($1::text[])`,
			published,
		); err != nil {
			return 0, xe.Wrap(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, xe.Wrap(err)
		}
	}
	return len(published), ferr
}
