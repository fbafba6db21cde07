package internal

import (
	"context"
	"fmt"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgerrors "github.com/fairtrace/fairtrace/pkg/db/postgres/errors"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

const BatchColumns = `
	"id", "number", "product_id", "node_id", "initial_quantity", "current_quantity",
	"unit", "source_transaction_id", "created_at"
`

func ScanBatch(row pgx.Row) (fdb.Batch, error) {
	b := fdb.Batch{}
	err := row.Scan(
		&b.Id, &b.Number, &b.ProductId, &b.NodeId, &b.InitialQuantity, &b.CurrentQuantity,
		&b.Unit, &b.SourceTransactionId, &b.CreatedAt,
	)
	return b, err
}

// QueryBatches runs a query selecting BatchColumns.
func QueryBatches(ctx context.Context, conn kpool.Queryer, query string, args ...any) ([]fdb.Batch, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	batches := []fdb.Batch{}
	for rows.Next() {
		b, err := ScanBatch(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		batches = append(batches, b)
	}
	return batches, xe.Wrap(rows.Err())
}

// GetBatches retrieves batches by ids.
//
// With forUpdate, rows are locked until the end of the SQL transaction.
func GetBatches(ctx context.Context, conn kpool.Queryer, ids []string, forUpdate bool) (map[string]fdb.Batch, error) {
	query := `select ` + BatchColumns + ` from "batch" where "id" = any($1::text[]) order by "id"`
	if forUpdate {
		query += ` for update`
	}
	batches, err := QueryBatches(ctx, conn, query, ids)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]fdb.Batch, len(batches))
	for _, b := range batches {
		ret[b.Id] = b
	}
	return ret, nil
}

const transactionColumns = `
	"id", "number", "kind", "type",
	coalesce("source_node_id", ''), coalesce("destination_node_id", ''), coalesce("product_id", ''),
	"quantity", "unit", "loss", "price", "currency", "date", "invoice_number",
	"status", "rejection_reason", coalesce("reverses", ''), "created_at"
`

func scanTransaction(row pgx.Row) (fdb.Transaction, error) {
	tx := fdb.Transaction{}
	err := row.Scan(
		&tx.Id, &tx.Number, &tx.Kind, &tx.Type,
		&tx.SourceNodeId, &tx.DestinationNodeId, &tx.ProductId,
		&tx.Quantity, &tx.Unit, &tx.Loss, &tx.Price, &tx.Currency, &tx.Date, &tx.InvoiceNumber,
		&tx.Status, &tx.RejectionReason, &tx.Reverses, &tx.CreatedAt,
	)
	return tx, err
}

// GetTransactions retrieves transactions by ids, with their source and result batches.
func GetTransactions(ctx context.Context, conn kpool.Queryer, ids []string) (map[string]fdb.Transaction, error) {
	rows, err := conn.Query(
		ctx,
		`select `+transactionColumns+` from "transaction" where "id" = any($1::text[])`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	txs := map[string]fdb.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		tx.SourceBatches = []fdb.SourceBatch{}
		tx.ResultBatches = []string{}
		txs[tx.Id] = tx
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	rows.Close()

	if len(txs) == 0 {
		return txs, nil
	}

	sbRows, err := conn.Query(
		ctx,
		`
		select "transaction_id", "batch_id", "quantity" from "source_batch"
		where "transaction_id" = any($1::text[])
		order by "transaction_id", "batch_id"
		`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer sbRows.Close()
	for sbRows.Next() {
		sb := fdb.SourceBatch{}
		if err := sbRows.Scan(&sb.TransactionId, &sb.BatchId, &sb.Quantity); err != nil {
			return nil, xe.Wrap(err)
		}
		tx := txs[sb.TransactionId]
		tx.SourceBatches = append(tx.SourceBatches, sb)
		txs[sb.TransactionId] = tx
	}
	if err := sbRows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	sbRows.Close()

	resRows, err := conn.Query(
		ctx,
		`
		select "source_transaction_id", "id" from "batch"
		where "source_transaction_id" = any($1::text[])
		order by "number"
		`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer resRows.Close()
	for resRows.Next() {
		var txId, batchId string
		if err := resRows.Scan(&txId, &batchId); err != nil {
			return nil, xe.Wrap(err)
		}
		tx := txs[txId]
		tx.ResultBatches = append(tx.ResultBatches, batchId)
		txs[txId] = tx
	}
	return txs, xe.Wrap(resRows.Err())
}

func GetTransaction(ctx context.Context, conn kpool.Queryer, id string) (fdb.Transaction, error) {
	txs, err := GetTransactions(ctx, conn, []string{id})
	if err != nil {
		return fdb.Transaction{}, err
	}
	tx, ok := txs[id]
	if !ok {
		return fdb.Transaction{}, xe.Wrap(pgerrors.Missing{Table: "transaction", Identity: id})
	}
	return tx, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// insertTransaction writes tx and its source batches, and consumes the source batches.
//
// Id, Number and CreatedAt of tx are filled.
func insertTransaction(ctx context.Context, conn kpool.Queryer, tx fdb.Transaction) (fdb.Transaction, error) {
	tx.Id = uuid.NewString()
	// timestamptz keeps microseconds. The transaction in memory should be the one read back.
	tx.Date = tx.Date.Truncate(time.Microsecond)
	if err := conn.QueryRow(
		ctx,
		`
		insert into "transaction" (
			"id", "kind", "type", "source_node_id", "destination_node_id", "product_id",
			"quantity", "unit", "loss", "price", "currency", "date", "invoice_number",
			"status", "reverses"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		returning "number", "created_at"
		`,
		tx.Id, tx.Kind, tx.Type,
		nullable(tx.SourceNodeId), nullable(tx.DestinationNodeId), nullable(tx.ProductId),
		tx.Quantity, tx.Unit, tx.Loss, tx.Price, tx.Currency, tx.Date, tx.InvoiceNumber,
		fdb.TransactionCreated, nullable(tx.Reverses),
	).Scan(&tx.Number, &tx.CreatedAt); err != nil {
		return tx, xe.Wrap(pgerrors.Translate(err, "transaction", tx.Id))
	}
	tx.Status = fdb.TransactionCreated

	sources := make([]fdb.SourceBatch, 0, len(tx.SourceBatches))
	for _, sb := range tx.SourceBatches {
		sb.TransactionId = tx.Id
		if _, err := conn.Exec(
			ctx,
			`insert into "source_batch" ("transaction_id", "batch_id", "quantity") values ($1, $2, $3)`,
			sb.TransactionId, sb.BatchId, sb.Quantity,
		); err != nil {
			return tx, xe.Wrap(pgerrors.Translate(err, "source_batch", sb.BatchId))
		}
		ctag, err := conn.Exec(
			ctx,
			`
			update "batch" set "current_quantity" = "current_quantity" - $2
			where "id" = $1 and "current_quantity" >= $2
			`,
			sb.BatchId, sb.Quantity,
		)
		if err != nil {
			return tx, xe.Wrap(pgerrors.Translate(err, "batch", sb.BatchId))
		}
		if ctag.RowsAffected() != 1 {
			return tx, xe.Wrap(&fdb.ErrShortage{BatchId: sb.BatchId, Want: sb.Quantity})
		}
		sources = append(sources, sb)
	}
	tx.SourceBatches = sources
	tx.ResultBatches = []string{}
	return tx, nil
}

// insertBatch creates a batch produced by the transaction.
func insertBatch(ctx context.Context, conn kpool.Queryer, tx fdb.Transaction, nodeId, productId string, quantity decimal.Decimal, unit string) (fdb.Batch, error) {
	b, err := ScanBatch(conn.QueryRow(
		ctx,
		`
		insert into "batch" (
			"id", "product_id", "node_id", "initial_quantity", "current_quantity",
			"unit", "source_transaction_id"
		)
		values ($1, $2, $3, $4, $4, $5, $6)
		returning `+BatchColumns,
		uuid.NewString(), productId, nodeId, quantity, unit, tx.Id,
	))
	if err != nil {
		return fdb.Batch{}, xe.Wrap(pgerrors.Translate(err, "batch", productId))
	}
	return b, nil
}

// afterRecord runs side effects of a recorded transaction:
// claim inheritance on result batches, notarization and notification.
func afterRecord(ctx context.Context, conn kpool.Queryer, actor string, tx fdb.Transaction) error {
	if len(tx.SourceBatches) != 0 && len(tx.ResultBatches) != 0 {
		sources := make([]string, 0, len(tx.SourceBatches))
		for _, sb := range tx.SourceBatches {
			sources = append(sources, sb.BatchId)
		}
		if err := InheritClaims(ctx, conn, actor, sources, tx.ResultBatches); err != nil {
			return err
		}
	}
	if err := EnqueueNotarization(ctx, conn, tx); err != nil {
		return err
	}
	return EnqueueReceipt(ctx, conn, tx)
}

// RecordExternal records a transaction between nodes.
//
// conn should be in a SQL transaction; batches are locked with "for update".
func RecordExternal(ctx context.Context, conn kpool.Queryer, param fdb.ExternalParam) (fdb.Transaction, error) {
	param, err := param.Validate()
	if err != nil {
		return fdb.Transaction{}, err
	}

	product, err := GetProduct(ctx, conn, param.ProductId)
	if err != nil {
		return fdb.Transaction{}, err
	}
	nodes, err := GetNodes(ctx, conn, []string{param.SourceNodeId, param.DestinationNodeId})
	if err != nil {
		return fdb.Transaction{}, err
	}
	for _, id := range []string{param.SourceNodeId, param.DestinationNodeId} {
		if _, ok := nodes[id]; !ok {
			return fdb.Transaction{}, xe.Wrap(pgerrors.Missing{Table: "node", Identity: id})
		}
	}
	if err := RequireConnection(
		ctx, conn, product.SupplyChainId, param.DestinationNodeId, param.SourceNodeId,
	); err != nil {
		return fdb.Transaction{}, err
	}

	tx := fdb.Transaction{
		Kind:              fdb.External,
		Type:              string(param.Type),
		SourceNodeId:      param.SourceNodeId,
		DestinationNodeId: param.DestinationNodeId,
		ProductId:         param.ProductId,
		Quantity:          param.Quantity,
		Unit:              param.Unit,
		Price:             param.Price,
		Currency:          param.Currency,
		Date:              param.Date,
		InvoiceNumber:     param.InvoiceNumber,
	}

	if param.Type == fdb.Outgoing {
		available, err := QueryBatches(
			ctx, conn,
			`
			select `+BatchColumns+` from "batch"
			where "node_id" = $1 and "product_id" = $2 and "current_quantity" > 0
			order by "created_at", "id"
			for update
			`,
			param.SourceNodeId, param.ProductId,
		)
		if err != nil {
			return fdb.Transaction{}, err
		}
		allocs, err := ledger.Allocate(available, param.Quantity, param.Batches)
		if err != nil {
			return fdb.Transaction{}, xe.Wrap(err)
		}
		units := map[string]string{}
		for _, b := range available {
			units[b.Id] = b.Unit
		}
		for _, a := range allocs {
			if units[a.BatchId] != param.Unit {
				return fdb.Transaction{}, fdb.NewErrInvalidParam(
					"unit", fmt.Sprintf("batch %s is in %s, not %s", a.BatchId, units[a.BatchId], param.Unit),
				)
			}
			tx.SourceBatches = append(tx.SourceBatches, fdb.SourceBatch{BatchId: a.BatchId, Quantity: a.Quantity})
		}
	}

	tx, err = insertTransaction(ctx, conn, tx)
	if err != nil {
		return fdb.Transaction{}, err
	}
	b, err := insertBatch(ctx, conn, tx, param.DestinationNodeId, param.ProductId, param.Quantity, param.Unit)
	if err != nil {
		return fdb.Transaction{}, err
	}
	tx.ResultBatches = []string{b.Id}

	if err := afterRecord(ctx, conn, param.Actor, tx); err != nil {
		return fdb.Transaction{}, err
	}
	return tx, nil
}

// RecordInternal records a processing inside of the actor node.
func RecordInternal(ctx context.Context, conn kpool.Queryer, param fdb.InternalParam) (fdb.Transaction, error) {
	param, err := param.Validate()
	if err != nil {
		return fdb.Transaction{}, err
	}

	ids := make([]string, 0, len(param.Sources))
	for _, s := range param.Sources {
		ids = append(ids, s.BatchId)
	}
	sources, err := GetBatches(ctx, conn, ids, true)
	if err != nil {
		return fdb.Transaction{}, err
	}
	for _, id := range ids {
		b, ok := sources[id]
		if !ok {
			return fdb.Transaction{}, xe.Wrap(pgerrors.Missing{Table: "batch", Identity: id})
		}
		if b.NodeId != param.Actor {
			return fdb.Transaction{}, fdb.NewErrForbidden(param.Actor, "consume batch "+id+" held by others")
		}
	}

	loss, err := ledger.CheckInternal(param.Type, sources, param.Sources, param.Outputs)
	if err != nil {
		return fdb.Transaction{}, xe.Wrap(err)
	}

	productIds := make([]string, 0, len(param.Outputs))
	for _, o := range param.Outputs {
		productIds = append(productIds, o.ProductId)
	}
	products, err := GetProducts(ctx, conn, productIds)
	if err != nil {
		return fdb.Transaction{}, err
	}
	for _, id := range productIds {
		if _, ok := products[id]; !ok {
			return fdb.Transaction{}, xe.Wrap(pgerrors.Missing{Table: "product", Identity: id})
		}
	}

	first := sources[param.Sources[0].BatchId]
	productId := first.ProductId
	if len(param.Outputs) != 0 {
		productId = param.Outputs[0].ProductId
	}
	tx := fdb.Transaction{
		Kind:              fdb.Internal,
		Type:              string(param.Type),
		SourceNodeId:      param.Actor,
		DestinationNodeId: param.Actor,
		ProductId:         productId,
		Quantity:          fdb.SumOf(param.Sources),
		Unit:              first.Unit,
		Loss:              loss,
		Date:              param.Date,
	}
	for _, s := range param.Sources {
		tx.SourceBatches = append(tx.SourceBatches, fdb.SourceBatch{BatchId: s.BatchId, Quantity: s.Quantity})
	}

	tx, err = insertTransaction(ctx, conn, tx)
	if err != nil {
		return fdb.Transaction{}, err
	}
	for _, o := range param.Outputs {
		b, err := insertBatch(ctx, conn, tx, param.Actor, o.ProductId, o.Quantity, first.Unit)
		if err != nil {
			return fdb.Transaction{}, err
		}
		tx.ResultBatches = append(tx.ResultBatches, b.Id)
	}

	if err := afterRecord(ctx, conn, param.Actor, tx); err != nil {
		return fdb.Transaction{}, err
	}
	return tx, nil
}

// RejectExternal rejects a transaction, and writes its reverse transaction.
//
// It returns the reverse transaction.
func RejectExternal(ctx context.Context, conn kpool.Queryer, param fdb.RejectParam, now time.Time) (fdb.Transaction, error) {
	var status fdb.TransactionStatus
	var kind fdb.TransactionKind
	if err := conn.QueryRow(
		ctx,
		`select "status", "kind" from "transaction" where "id" = $1 for update`,
		param.TransactionId,
	).Scan(&status, &kind); err != nil {
		return fdb.Transaction{}, xe.Wrap(pgerrors.Translate(err, "transaction", param.TransactionId))
	}
	orig, err := GetTransaction(ctx, conn, param.TransactionId)
	if err != nil {
		return fdb.Transaction{}, err
	}

	if kind != fdb.External || orig.Type == string(fdb.Reverse) {
		return fdb.Transaction{}, fdb.NewErrInvalidState(
			"transaction "+orig.Id, orig.Type, "only incoming or outgoing transactions can be rejected",
		)
	}
	if orig.DestinationNodeId != param.Actor {
		return fdb.Transaction{}, fdb.NewErrForbidden(param.Actor, "reject transactions to others")
	}
	if status != fdb.TransactionCreated {
		return fdb.Transaction{}, fdb.NewErrInvalidState(
			"transaction "+orig.Id, string(status), "already rejected",
		)
	}

	results, err := GetBatches(ctx, conn, orig.ResultBatches, true)
	if err != nil {
		return fdb.Transaction{}, err
	}
	for _, b := range results {
		if !b.Untouched() {
			return fdb.Transaction{}, fdb.NewErrInvalidState(
				"batch "+b.Id, "consumed "+b.Consumed().String(), "batches in use cannot be rejected",
			)
		}
	}

	sourceIds := make([]string, 0, len(orig.SourceBatches))
	for _, sb := range orig.SourceBatches {
		sourceIds = append(sourceIds, sb.BatchId)
	}
	if _, err := GetBatches(ctx, conn, sourceIds, true); err != nil {
		return fdb.Transaction{}, err
	}
	for _, sb := range orig.SourceBatches {
		if _, err := conn.Exec(
			ctx,
			`update "batch" set "current_quantity" = "current_quantity" + $2 where "id" = $1`,
			sb.BatchId, sb.Quantity,
		); err != nil {
			return fdb.Transaction{}, xe.Wrap(pgerrors.Translate(err, "batch", sb.BatchId))
		}
	}
	if _, err := conn.Exec(
		ctx,
		`update "batch" set "current_quantity" = 0 where "source_transaction_id" = $1`,
		orig.Id,
	); err != nil {
		return fdb.Transaction{}, xe.Wrap(err)
	}
	if _, err := conn.Exec(
		ctx,
		`update "transaction" set "status" = $2, "rejection_reason" = $3 where "id" = $1`,
		orig.Id, fdb.TransactionRejected, param.Reason,
	); err != nil {
		return fdb.Transaction{}, xe.Wrap(err)
	}

	reverse, err := insertTransaction(ctx, conn, fdb.Transaction{
		Kind:              fdb.External,
		Type:              string(fdb.Reverse),
		SourceNodeId:      orig.DestinationNodeId,
		DestinationNodeId: orig.SourceNodeId,
		ProductId:         orig.ProductId,
		Quantity:          orig.Quantity,
		Unit:              orig.Unit,
		Price:             orig.Price,
		Currency:          orig.Currency,
		Date:              now,
		InvoiceNumber:     orig.InvoiceNumber,
		Reverses:          orig.Id,
	})
	if err != nil {
		return fdb.Transaction{}, err
	}
	if err := EnqueueNotarization(ctx, conn, reverse); err != nil {
		return fdb.Transaction{}, err
	}
	return reverse, nil
}
