package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	"github.com/fairtrace/fairtrace/pkg/db/postgres/internal"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/utils"
)

type ledgerPG struct {
	pool  kpool.Pool
	clock func() time.Time
}

type Option func(*ledgerPG) *ledgerPG

// WithClock replaces the clock dating reverse transactions.
func WithClock(clock func() time.Time) Option {
	return func(l *ledgerPG) *ledgerPG {
		l.clock = clock
		return l
	}
}

func New(pool kpool.Pool, options ...Option) fdb.LedgerInterface {
	l := &ledgerPG{pool: pool, clock: time.Now}
	for _, opt := range options {
		l = opt(l)
	}
	return l
}

func (l *ledgerPG) RecordExternal(ctx context.Context, param fdb.ExternalParam) (fdb.Transaction, error) {
	return kpool.InTx(ctx, l.pool, func(tx kpool.Tx) (fdb.Transaction, error) {
		return internal.RecordExternal(ctx, tx, param)
	})
}

func (l *ledgerPG) RejectExternal(ctx context.Context, param fdb.RejectParam) (fdb.Transaction, error) {
	return kpool.InTx(ctx, l.pool, func(tx kpool.Tx) (fdb.Transaction, error) {
		return internal.RejectExternal(ctx, tx, param, l.clock())
	})
}

func (l *ledgerPG) RecordInternal(ctx context.Context, param fdb.InternalParam) (fdb.Transaction, error) {
	return kpool.InTx(ctx, l.pool, func(tx kpool.Tx) (fdb.Transaction, error) {
		return internal.RecordInternal(ctx, tx, param)
	})
}

func (l *ledgerPG) GetTransactions(ctx context.Context, ids []string) (map[string]fdb.Transaction, error) {
	return internal.GetTransactions(ctx, l.pool, ids)
}

func (l *ledgerPG) FindTransactions(ctx context.Context, query fdb.TransactionQuery) ([]string, error) {
	rows, err := l.pool.Query(
		ctx,
		`
		select "id" from "transaction"
		where ("source_node_id" = $1 or "destination_node_id" = $1)
			and ($2::timestamptz is null or $2 <= "date")
			and ($3::timestamptz is null or "date" < $3)
		order by "date" desc, "number" desc
		`,
		query.NodeId, query.Since, query.Until,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, xe.Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, xe.Wrap(rows.Err())
}

func (l *ledgerPG) GetBatches(ctx context.Context, ids []string) (map[string]fdb.Batch, error) {
	return internal.GetBatches(ctx, l.pool, ids, false)
}

func (l *ledgerPG) FindBatches(ctx context.Context, query fdb.BatchQuery) ([]fdb.Batch, error) {
	return internal.QueryBatches(
		ctx, l.pool,
		`
		select `+internal.BatchColumns+` from "batch"
		where "node_id" = $1
			and ($2 = '' or "product_id" = $2)
			and (not $3 or "current_quantity" > 0)
		order by "created_at", "number"
		`,
		query.NodeId, query.ProductId, query.InStock,
	)
}

func (l *ledgerPG) Lineage(ctx context.Context, batchId string, direction fdb.Direction, depth int) (fdb.Lineage, error) {
	if direction == "" {
		direction = fdb.Upstream
	}
	if _, err := fdb.AsDirection(string(direction)); err != nil {
		return fdb.Lineage{}, err
	}

	// a consistent snapshot of the ledger
	return kpool.InTx(ctx, l.pool, func(tx kpool.Tx) (fdb.Lineage, error) {
		root, err := internal.GetBatches(ctx, tx, []string{batchId}, false)
		if err != nil {
			return fdb.Lineage{}, err
		}
		if _, ok := root[batchId]; !ok {
			return fdb.Lineage{}, xe.Wrap(pgerrors.Missing{Table: "batch", Identity: batchId})
		}

		lin := fdb.Lineage{
			Root:         batchId,
			Batches:      root,
			Transactions: map[string]fdb.Transaction{},
		}

		frontier := []string{batchId}
		for hop := 1; len(frontier) != 0 && (depth <= 0 || hop <= depth); hop++ {
			var txIds []string
			if direction == fdb.Upstream {
				txIds, err = producers(ctx, tx, frontier)
			} else {
				txIds, err = consumers(ctx, tx, frontier)
			}
			if err != nil {
				return fdb.Lineage{}, err
			}
			txIds = utils.Filter(txIds, func(id string) bool {
				_, seen := lin.Transactions[id]
				return !seen
			})
			if len(txIds) == 0 {
				break
			}

			txs, err := internal.GetTransactions(ctx, tx, txIds)
			if err != nil {
				return fdb.Lineage{}, err
			}

			next := []string{}
			for _, t := range txs {
				lin.Transactions[t.Id] = t
				if direction == fdb.Upstream {
					for _, sb := range t.SourceBatches {
						next = append(next, sb.BatchId)
					}
				} else {
					next = append(next, t.ResultBatches...)
				}
			}
			next = utils.Filter(next, func(id string) bool {
				_, seen := lin.Batches[id]
				return !seen
			})

			batches, err := internal.GetBatches(ctx, tx, next, false)
			if err != nil {
				return fdb.Lineage{}, err
			}
			for id, b := range batches {
				lin.Batches[id] = b
			}
			frontier = utils.KeysOf(batches)
		}
		return lin, nil
	})
}

// producers are transactions which have made the batches.
func producers(ctx context.Context, conn kpool.Queryer, batchIds []string) ([]string, error) {
	return selectIds(
		ctx, conn,
		`select distinct "source_transaction_id" from "batch" where "id" = any($1::text[])`,
		batchIds,
	)
}

// consumers are non-rejected transactions which have consumed the batches.
func consumers(ctx context.Context, conn kpool.Queryer, batchIds []string) ([]string, error) {
	return selectIds(
		ctx, conn,
		`
		select distinct "sb"."transaction_id"
		from "source_batch" as "sb"
		inner join "transaction" as "t" on "t"."id" = "sb"."transaction_id"
		where "sb"."batch_id" = any($1::text[]) and "t"."status" <> $2
		`,
		batchIds, fdb.TransactionRejected,
	)
}

func selectIds(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]string, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, xe.Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, xe.Wrap(rows.Err())
}

func (l *ledgerPG) Balances(ctx context.Context, nodeId string) ([]fdb.BatchBalance, error) {
	rows, err := l.pool.Query(
		ctx,
		`
		select
			`+prefixed("b", internal.BatchColumns)+`,
			coalesce((
				select sum("sb"."quantity")
				from "source_batch" as "sb"
				inner join "transaction" as "c" on "c"."id" = "sb"."transaction_id"
				where "sb"."batch_id" = "b"."id" and "c"."status" <> $2
			), 0),
			"p"."status" = $2
		from "batch" as "b"
		inner join "transaction" as "p" on "p"."id" = "b"."source_transaction_id"
		where "b"."node_id" = $1
		order by "b"."number"
		`,
		nodeId, fdb.TransactionRejected,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	balances := []fdb.BatchBalance{}
	for rows.Next() {
		bal := fdb.BatchBalance{}
		b := &bal.Batch
		if err := rows.Scan(
			&b.Id, &b.Number, &b.ProductId, &b.NodeId, &b.InitialQuantity, &b.CurrentQuantity,
			&b.Unit, &b.SourceTransactionId, &b.CreatedAt,
			&bal.Consumed, &bal.Voided,
		); err != nil {
			return nil, xe.Wrap(err)
		}
		balances = append(balances, bal)
	}
	return balances, xe.Wrap(rows.Err())
}

// prefixed qualifies comma separated columns with the table alias.
func prefixed(alias string, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = fmt.Sprintf(`"%s".%s`, alias, strings.TrimSpace(c))
	}
	return strings.Join(cols, ", ")
}
