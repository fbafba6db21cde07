package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	bindjobs "github.com/fairtrace/fairtrace/pkg/api/binding/jobs"
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/labstack/echo/v4"
)

// form field of uploaded spreadsheets.
const FileField = "file"

// lookups collects products and farmers which rows of the node can refer to.
//
// When supplyChainId is empty, all supply chains are looked up.
func lookups(ctx context.Context, dbnodes fdb.NodeInterface, nodeId string, supplyChainId string, now time.Time) (bulkupload.Lookups, error) {
	products, err := dbnodes.Products(ctx, supplyChainId)
	if err != nil {
		return bulkupload.Lookups{}, err
	}

	chains := []string{supplyChainId}
	if supplyChainId == "" {
		scs, err := dbnodes.SupplyChains(ctx)
		if err != nil {
			return bulkupload.Lookups{}, err
		}
		chains = chains[:0]
		for _, sc := range scs {
			chains = append(chains, sc.Id)
		}
	}

	supplierIds := []string{}
	for _, sc := range chains {
		conns, err := dbnodes.Neighbors(ctx, sc, []string{nodeId}, fdb.Upstream)
		if err != nil {
			return bulkupload.Lookups{}, err
		}
		for _, conn := range conns {
			supplierIds = append(supplierIds, conn.SupplierId)
		}
	}

	farmers := map[string]fdb.Node{}
	if len(supplierIds) != 0 {
		suppliers, err := dbnodes.Get(ctx, supplierIds)
		if err != nil {
			return bulkupload.Lookups{}, err
		}
		for id, n := range suppliers {
			if n.Type == fdb.Farmer {
				farmers[id] = n
			}
		}
	}

	return bulkupload.Lookups{Products: products, Farmers: farmers, Now: now}, nil
}

// check reads and validates the uploaded sheet.
//
// rows is the number of data rows read.
func check(
	c echo.Context, dbnodes fdb.NodeInterface, nodeId string, supplyChainId string, kind fdb.UploadKind, now time.Time,
) (v bulkupload.Validation, rows int, filename string, err error) {
	fh, err := c.FormFile(FileField)
	if err != nil {
		return v, 0, "", binderr.BadRequest(`multipart form with "`+FileField+`" field is required`, err)
	}
	f, err := fh.Open()
	if err != nil {
		return v, 0, "", binderr.InternalServerError(err)
	}
	defer f.Close()

	parsed, errs, err := bulkupload.Parse(f, kind)
	if err != nil {
		return v, 0, "", binderr.FromDB(err)
	}
	if len(errs) != 0 {
		return bulkupload.Validation{Kind: kind, Errors: errs}, len(parsed), fh.Filename, nil
	}

	ctx := c.Request().Context()
	l, err := lookups(ctx, dbnodes, nodeId, supplyChainId, now)
	if err != nil {
		return v, 0, "", binderr.FromDB(err)
	}
	return bulkupload.Validate(ctx, kind, parsed, l), len(parsed), fh.Filename, nil
}

// ValidateUploadHandler checks the uploaded sheet without recording anything.
func ValidateUploadHandler(dbnodes fdb.NodeInterface, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		kind, err := fdb.AsUploadKind(c.QueryParam("kind"))
		if err != nil {
			return binderr.FromDB(err)
		}
		v, rows, _, err := check(c, dbnodes, acting, c.QueryParam("supply_chain"), kind, now())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, bindjobs.ComposeValidation(kind, rows, v.Errors))
	}
}

// CommitUploadHandler records farmers or transactions of the uploaded sheet, all or nothing.
//
// When rows have errors, nothing is recorded and it responds 400 with them.
func CommitUploadHandler(dbnodes fdb.NodeInterface, dbuploads fdb.UploadInterface, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		kind, err := fdb.AsUploadKind(c.QueryParam("kind"))
		if err != nil {
			return binderr.FromDB(err)
		}
		sc := c.QueryParam("supply_chain")
		if sc == "" {
			return binderr.BadRequest("supply_chain is required", nil)
		}

		v, rows, filename, err := check(c, dbnodes, acting, sc, kind, now())
		if err != nil {
			return err
		}
		if !v.OK() {
			return c.JSON(http.StatusBadRequest, apijobs.UploadFailure{
				Reason:     "the sheet has errors. nothing is recorded.",
				Validation: bindjobs.ComposeValidation(kind, rows, v.Errors),
			})
		}

		param, err := v.Param(acting, sc, filename)
		if err != nil {
			return binderr.FromDB(err)
		}
		u, err := dbuploads.Commit(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindjobs.ComposeUpload(u))
	}
}

func GetUploadHandler(dbuploads fdb.UploadInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := dbuploads.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return binderr.FromDB(err)
		}
		if err := allowed(c, u.NodeId); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, bindjobs.ComposeUpload(u))
	}
}

// RequestReportHandler queues a report of the acting node.
func RequestReportHandler(dbreports fdb.ReportInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apijobs.ReportSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindjobs.ParseReportSpec(acting, spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		job, err := dbreports.Request(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindjobs.ComposeReport(job))
	}
}

func GetReportHandler(dbreports fdb.ReportInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := dbreports.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return binderr.FromDB(err)
		}
		if err := allowed(c, job.NodeId); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, bindjobs.ComposeReport(job))
	}
}

// ReportFileHandler sends the generated spreadsheet.
//
// Files are looked up in dir by their base names.
func ReportFileHandler(dbreports fdb.ReportInterface, dir string, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := dbreports.Get(c.Request().Context(), c.Param(param))
		if err != nil {
			return binderr.FromDB(err)
		}
		if err := allowed(c, job.NodeId); err != nil {
			return err
		}
		if job.Status != fdb.ReportDone {
			return binderr.Conflict(
				"report is not ready",
				binderr.WithAdvice("report is "+string(job.Status)+". retry after it is done."),
				binderr.WithSee("/api/reports/"+job.Id+"/"),
			)
		}

		path := filepath.Join(dir, filepath.Base(job.File))
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return binderr.NewErrorMessage(
					http.StatusGone, "report file is gone",
					binderr.WithAdvice("request the report again."),
				)
			}
			return binderr.InternalServerError(err)
		}
		return c.Attachment(path, string(job.Kind)+"-"+job.Id+".xlsx")
	}
}
