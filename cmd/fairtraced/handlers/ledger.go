package handlers

import (
	"net/http"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	bindledger "github.com/fairtrace/fairtrace/pkg/api/binding/ledger"
	apiledger "github.com/fairtrace/fairtrace/pkg/api/types/ledger"
	"github.com/fairtrace/fairtrace/pkg/auth"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/ledger"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/labstack/echo/v4"
)

func RecordExternalHandler(dbledger fdb.LedgerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apiledger.ExternalSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindledger.ParseExternalSpec(acting, spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		if param, err = param.Validate(); err != nil {
			return binderr.FromDB(err)
		}
		tx, err := dbledger.RecordExternal(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindledger.ComposeTransaction(tx))
	}
}

// RejectExternalHandler rejects a transaction, and responds the reverse transaction.
func RejectExternalHandler(dbledger fdb.LedgerInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apiledger.RejectSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		if spec.Reason == "" {
			return binderr.BadRequest("reason is required", nil)
		}
		rev, err := dbledger.RejectExternal(c.Request().Context(), fdb.RejectParam{
			TransactionId: c.Param(param),
			Actor:         acting,
			Reason:        spec.Reason,
		})
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindledger.ComposeTransaction(rev))
	}
}

func RecordInternalHandler(dbledger fdb.LedgerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apiledger.InternalSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindledger.ParseInternalSpec(acting, spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		if param, err = param.Validate(); err != nil {
			return binderr.FromDB(err)
		}
		tx, err := dbledger.RecordInternal(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindledger.ComposeTransaction(tx))
	}
}

// FindTransactionsHandler lists transactions of a node, newest first.
func FindTransactionsHandler(dbledger fdb.LedgerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		nodeId, err := nodeQuery(c, "node")
		if err != nil {
			return err
		}
		q := fdb.TransactionQuery{NodeId: nodeId}
		if q.Since, err = queryTime(c, "since"); err != nil {
			return err
		}
		if q.Until, err = queryTime(c, "until"); err != nil {
			return err
		}

		ids, err := dbledger.FindTransactions(ctx, q)
		if err != nil {
			return binderr.FromDB(err)
		}
		txs, err := dbledger.GetTransactions(ctx, ids)
		if err != nil {
			return binderr.FromDB(err)
		}
		resp := make([]apiledger.Transaction, 0, len(ids))
		for _, id := range ids {
			if tx, ok := txs[id]; ok {
				resp = append(resp, bindledger.ComposeTransaction(tx))
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// GetTransactionHandler responds a transaction to nodes involved in it.
func GetTransactionHandler(dbledger fdb.LedgerInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := auth.PrincipalOf(c)
		if !ok {
			return binderr.Unauthorized("not authenticated", nil)
		}
		txId := c.Param(param)
		txs, err := dbledger.GetTransactions(c.Request().Context(), []string{txId})
		if err != nil {
			return binderr.FromDB(err)
		}
		tx, ok := txs[txId]
		if !ok {
			return binderr.NotFound()
		}
		if !p.Can(tx.SourceNodeId) && !p.Can(tx.DestinationNodeId) {
			return binderr.FromDB(fdb.NewErrForbidden(p.NodeId, "read transaction "+txId))
		}
		return c.JSON(http.StatusOK, bindledger.ComposeTransaction(tx))
	}
}

// ProofHandler tells whether the transaction is what has been notarized.
func ProofHandler(dbledger fdb.LedgerInterface, dbnotary fdb.NotaryInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		txId := c.Param(param)
		txs, err := dbledger.GetTransactions(ctx, []string{txId})
		if err != nil {
			return binderr.FromDB(err)
		}
		tx, ok := txs[txId]
		if !ok {
			return binderr.NotFound()
		}
		ns, err := dbnotary.Get(ctx, []string{txId})
		if err != nil {
			return binderr.FromDB(err)
		}
		n, ok := ns[txId]
		if !ok {
			return binderr.NewErrorMessage(
				http.StatusNotFound, "not notarized",
				binderr.WithAdvice("the transaction is not a subject of notarization."),
			)
		}
		proof, err := notary.Prove(tx, n)
		if err != nil {
			return binderr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, bindledger.ComposeProof(proof))
	}
}

func FindBatchesHandler(dbledger fdb.LedgerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		nodeId, err := nodeQuery(c, "node")
		if err != nil {
			return err
		}
		q := fdb.BatchQuery{
			NodeId:    nodeId,
			ProductId: c.QueryParam("product"),
			InStock:   c.QueryParam("in_stock") == "true",
		}
		bs, err := dbledger.FindBatches(c.Request().Context(), q)
		if err != nil {
			return binderr.FromDB(err)
		}
		resp := make([]apiledger.Batch, 0, len(bs))
		for _, b := range bs {
			resp = append(resp, bindledger.ComposeBatch(b))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func GetBatchHandler(dbledger fdb.LedgerInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		batchId := c.Param(param)
		bs, err := dbledger.GetBatches(c.Request().Context(), []string{batchId})
		if err != nil {
			return binderr.FromDB(err)
		}
		b, ok := bs[batchId]
		if !ok {
			return binderr.NotFound()
		}
		return c.JSON(http.StatusOK, bindledger.ComposeBatch(b))
	}
}

// TraceHandler responds the lineage of the batch as a graph.
//
// Transactions which the principal is not a party of are redacted.
func TraceHandler(dbledger fdb.LedgerInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := auth.PrincipalOf(c)
		if !ok {
			return binderr.Unauthorized("not authenticated", nil)
		}
		direction, err := fdb.AsDirection(c.QueryParam("direction"))
		if err != nil {
			return binderr.FromDB(err)
		}
		depth, err := queryInt(c, "depth", 0)
		if err != nil {
			return err
		}
		l, err := dbledger.Lineage(c.Request().Context(), c.Param(param), direction, depth)
		if err != nil {
			return binderr.FromDB(err)
		}
		g := ledger.Trace(l)
		for nth, tx := range g.Transactions {
			if !p.Can(tx.SourceNodeId) && !p.Can(tx.DestinationNodeId) {
				g.Transactions[nth] = bindledger.Redact(tx)
			}
		}
		return c.JSON(http.StatusOK, bindledger.ComposeTrace(g, direction))
	}
}

// OriginsHandler attributes the batch to the transactions which have brought its quantity in.
func OriginsHandler(dbledger fdb.LedgerInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		batchId := c.Param(param)
		l, err := dbledger.Lineage(c.Request().Context(), batchId, fdb.Upstream, 0)
		if err != nil {
			return binderr.FromDB(err)
		}
		origins, err := ledger.Origins(l)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindledger.ComposeOrigins(batchId, origins))
	}
}

// AuditHandler recomputes quantities of batches held by the acting node.
func AuditHandler(dbledger fdb.LedgerInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		balances, err := dbledger.Balances(c.Request().Context(), acting)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(
			http.StatusOK,
			bindledger.ComposeAudit(acting, len(balances), ledger.Audit(balances)),
		)
	}
}
