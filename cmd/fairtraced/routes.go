package main

import (
	"path"
	"time"

	"github.com/fairtrace/fairtrace/cmd/fairtraced/handlers"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/fairtrace/fairtrace/pkg/configs/server"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/labstack/echo/v4"
)

// root makes paths under r. Paths are "/" terminated.
func root(r string) func(...string) string {
	return func(s ...string) string {
		p := path.Join(append([]string{"/", r}, s...)...)
		if p == "/" {
			return p
		}
		return p + "/"
	}
}

// routes registers handlers of the api and the consumer interface.
func routes(e *echo.Echo, dbase fdb.Database, conf *server.ServerConfig, clock func() time.Time) {
	api := e.Group("/api", auth.Middleware(conf.Auth().Secret(), conf.Auth().Issuer()))
	p := root("")

	{
		dbnodes := dbase.Nodes()
		api.POST(p("supply-chains"), handlers.CreateSupplyChainHandler(dbnodes))
		api.GET(p("supply-chains"), handlers.ListSupplyChainsHandler(dbnodes))
		api.POST(p("products"), handlers.CreateProductHandler(dbnodes))
		api.GET(p("products"), handlers.ListProductsHandler(dbnodes))

		api.POST(p("nodes", "companies"), handlers.CreateNodeHandler(dbnodes, fdb.Company))
		api.POST(p("nodes", "verifiers"), handlers.CreateNodeHandler(dbnodes, fdb.Verifier))
		api.POST(p("nodes", "farmers"), handlers.CreateFarmerHandler(dbnodes))
		api.GET(p("nodes"), handlers.FindNodesHandler(dbnodes))
		api.GET(p("nodes", ":nodeId"), handlers.GetNodeHandler(dbnodes, "nodeId"))
		api.GET(p("nodes", ":nodeId", "network"), handlers.NetworkHandler(dbnodes, "nodeId"))
		api.GET(p("nodes", ":nodeId", "suppliers"), handlers.NeighborsHandler(dbnodes, "nodeId", fdb.Upstream))
		api.GET(p("nodes", ":nodeId", "buyers"), handlers.NeighborsHandler(dbnodes, "nodeId", fdb.Downstream))

		api.POST(p("invitations"), handlers.InviteHandler(dbnodes))
		api.PUT(p("invitations", ":invitationId", "accept"), handlers.AcceptHandler(dbnodes, "invitationId"))
	}

	{
		dbledger := dbase.Ledger()
		api.POST(p("transactions", "external"), handlers.RecordExternalHandler(dbledger))
		api.PUT(p("transactions", "external", ":txId", "reject"), handlers.RejectExternalHandler(dbledger, "txId"))
		api.POST(p("transactions", "internal"), handlers.RecordInternalHandler(dbledger))
		api.GET(p("transactions"), handlers.FindTransactionsHandler(dbledger))
		api.GET(p("transactions", ":txId"), handlers.GetTransactionHandler(dbledger, "txId"))
		api.GET(p("transactions", ":txId", "proof"), handlers.ProofHandler(dbledger, dbase.Notary(), "txId"))

		api.GET(p("batches"), handlers.FindBatchesHandler(dbledger))
		api.GET(p("batches", ":batchId"), handlers.GetBatchHandler(dbledger, "batchId"))
		api.GET(p("batches", ":batchId", "trace"), handlers.TraceHandler(dbledger, "batchId"))
		api.GET(p("batches", ":batchId", "origins"), handlers.OriginsHandler(dbledger, "batchId"))
		api.GET(p("ledger", "audit"), handlers.AuditHandler(dbledger))
	}

	{
		dbclaims := dbase.Claims()
		api.POST(p("claims"), handlers.CreateClaimHandler(dbclaims))
		api.GET(p("claims"), handlers.FindClaimsHandler(dbclaims))
		api.POST(p("claims", ":claimId", "attach"), handlers.AttachHandler(dbclaims, "claimId"))
		api.GET(p("attached-claims"), handlers.FindAttachedHandler(dbclaims))
		api.PUT(p("attached-claims", ":attachedId", "verify"), handlers.VerifyHandler(dbclaims, "attachedId"))
	}

	{
		api.POST(p("uploads", "validate"), handlers.ValidateUploadHandler(dbase.Nodes(), clock))
		api.POST(p("uploads"), handlers.CommitUploadHandler(dbase.Nodes(), dbase.Uploads(), clock))
		api.GET(p("uploads", ":uploadId"), handlers.GetUploadHandler(dbase.Uploads(), "uploadId"))

		dbreports := dbase.Reports()
		api.POST(p("reports"), handlers.RequestReportHandler(dbreports))
		api.GET(p("reports", ":reportId"), handlers.GetReportHandler(dbreports, "reportId"))
		api.GET(
			p("reports", ":reportId", "file"),
			handlers.ReportFileHandler(dbreports, conf.Reports().Directory(), "reportId"),
		)
	}

	{
		baseURL := ""
		if pub := conf.Public(); pub != nil {
			baseURL = pub.BaseURL()
		}
		public := root("public")
		e.GET(public("batches", ":batchId"), handlers.PublicBatchHandler(dbase, baseURL, "batchId"))
	}
}
