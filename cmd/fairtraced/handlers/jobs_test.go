package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/cmd/fairtraced/handlers"
	httptestutil "github.com/fairtrace/fairtrace/internal/testutils/http"
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

// workbook makes a "Transactions" sheet with the header and lines.
func workbook(t *testing.T, lines ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Transactions"); err != nil {
		t.Fatal(err)
	}

	cols := bulkupload.Columns(fdb.TransactionUpload)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	for nth, line := range append([][]any{header}, lines...) {
		cell, err := excelize.CoordinatesToCellName(1, nth+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Transactions", cell, &line); err != nil {
			t.Fatal(err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// farmer_id, first_name, last_name, phone, country, province, identification,
// date, product, quantity, unit, price, currency, invoice_number
var (
	knownFarmerRow = []any{"farmer-1", "", "", "", "", "", "", "2026-03-01", "Cherry", "120", "kg", "300", "usd", "INV-1"}
	newFarmerRow   = []any{"", "Ana", "Lopez", "+57 300 1234567", "CO", "Huila", "", "2026-03-02", "p-1", "80", "kg", "", "", "INV-2"}
	brokenRow      = []any{"farmer-9", "", "", "", "", "", "", "2099-01-01", "Tea", "-1", "kg", "", "", ""}
)

func uploadNodes() *mocks.MockNodeInterface {
	dbnodes := mocks.NewMockNodeInterface()
	dbnodes.Impl.Products = func(ctx context.Context, sc string) ([]fdb.Product, error) {
		return []fdb.Product{{Id: "p-1", SupplyChainId: "sc-1", Name: "Cherry"}}, nil
	}
	dbnodes.Impl.SupplyChains = func(ctx context.Context) ([]fdb.SupplyChain, error) {
		return []fdb.SupplyChain{{Id: "sc-1", Name: "coffee"}}, nil
	}
	dbnodes.Impl.Neighbors = func(ctx context.Context, sc string, ids []string, d fdb.Direction) ([]fdb.Connection, error) {
		return []fdb.Connection{
			{Id: "c-1", SupplyChainId: sc, BuyerId: "node-a", SupplierId: "farmer-1"},
			{Id: "c-2", SupplyChainId: sc, BuyerId: "node-a", SupplierId: "node-s"},
		}, nil
	}
	dbnodes.Impl.Get = func(ctx context.Context, ids []string) (map[string]fdb.Node, error) {
		return map[string]fdb.Node{
			"farmer-1": {Id: "farmer-1", Type: fdb.Farmer, Name: "Jose Diaz"},
			"node-s":   {Id: "node-s", Type: fdb.Company, Name: "Coop"},
		}, nil
	}
	return dbnodes
}

var uploadedAt = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

func TestValidateUploadHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		lines [][]any
		want  apijobs.Validation
	}{
		"when rows are valid, it responds no errors": {
			lines: [][]any{knownFarmerRow, newFarmerRow},
			want:  apijobs.Validation{Kind: "transactions", Rows: 2, Errors: []apijobs.RowError{}},
		},
		"when rows are broken, it responds errors by row and column": {
			lines: [][]any{knownFarmerRow, brokenRow},
			want: apijobs.Validation{
				Kind: "transactions", Rows: 2,
				Errors: []apijobs.RowError{
					{Row: 3, Column: "date", Message: "should not be in the future"},
					{Row: 3, Column: "farmer_id", Message: "unknown farmer"},
					{Row: 3, Column: "product", Message: "unknown product"},
					{Row: 3, Column: "quantity", Message: "should be a positive number"},
				},
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			data, ctype := httptestutil.Multipart(t, handlers.FileField, "deliveries.xlsx", workbook(t, testcase.lines...))
			c, resp := httptestutil.Post(echo.New(), "/api/uploads/validate/?kind=transactions", data, ctype)
			if err := handlers.ValidateUploadHandler(uploadNodes(), uploadedAt)(as(c, member)); err != nil {
				t.Fatal(err)
			}
			got := body[apijobs.Validation](t, resp)
			if !cmp.Equal(got, testcase.want) {
				t.Errorf("validation: %s", cmp.Diff(testcase.want, got))
			}
		})
	}

	t.Run("when the file is missing, it is a bad request", func(t *testing.T) {
		c, _ := httptestutil.Post(
			echo.New(), "/api/uploads/validate/?kind=transactions", strings.NewReader(""),
			httptestutil.ContentType("multipart/form-data; boundary=none"),
		)
		err := handlers.ValidateUploadHandler(uploadNodes(), uploadedAt)(as(c, member))
		if got := codeOf(err); got != http.StatusBadRequest {
			t.Errorf("status: %d (%v)", got, err)
		}
	})

	t.Run("when the kind is unknown, it is a bad request", func(t *testing.T) {
		data, ctype := httptestutil.Multipart(t, handlers.FileField, "x.xlsx", workbook(t))
		c, _ := httptestutil.Post(echo.New(), "/api/uploads/validate/?kind=invoices", data, ctype)
		err := handlers.ValidateUploadHandler(uploadNodes(), uploadedAt)(as(c, member))
		if got := codeOf(err); got != http.StatusBadRequest {
			t.Errorf("status: %d (%v)", got, err)
		}
	})
}

func TestCommitUploadHandler(t *testing.T) {
	t.Run("when rows are valid, they are committed at once", func(t *testing.T) {
		dbuploads := mocks.NewMockUploadInterface()
		dbuploads.Impl.Commit = func(ctx context.Context, param fdb.UploadParam) (fdb.Upload, error) {
			return fdb.Upload{
				Id: "up-1", NodeId: param.Actor, SupplyChainId: param.SupplyChainId,
				Kind: param.Kind, Filename: param.Filename, Status: fdb.UploadCommitted,
				RowCount: len(param.Rows), FarmerIds: []string{"farmer-1", "farmer-2"},
				TransactionIds: []string{"tx-1", "tx-2"},
			}, nil
		}

		data, ctype := httptestutil.Multipart(
			t, handlers.FileField, "deliveries.xlsx", workbook(t, knownFarmerRow, newFarmerRow),
		)
		c, resp := httptestutil.Post(echo.New(), "/api/uploads/?kind=transactions&supply_chain=sc-1", data, ctype)
		if err := handlers.CommitUploadHandler(uploadNodes(), dbuploads, uploadedAt)(as(c, member)); err != nil {
			t.Fatal(err)
		}

		if dbuploads.Calls.Commit.Times() != 1 {
			t.Fatalf("Commit is called %d times", dbuploads.Calls.Commit.Times())
		}
		param := dbuploads.Calls.Commit[0]
		if param.Actor != "node-a" || param.SupplyChainId != "sc-1" || param.Filename != "deliveries.xlsx" {
			t.Errorf("param: %+v", param)
		}
		if len(param.Rows) != 2 || param.Rows[0].FarmerId != "farmer-1" ||
			param.Rows[1].Farmer == nil || param.Rows[1].Farmer.Phone != "+573001234567" {
			t.Errorf("rows: %+v", param.Rows)
		}
		if tx := param.Rows[0].Transaction; tx == nil || tx.ProductId != "p-1" || tx.Currency != "USD" {
			t.Errorf("transaction of row 2: %+v", tx)
		}

		got := body[apijobs.Upload](t, resp)
		if got.Status != "committed" || got.RowCount != 2 || len(got.TransactionIds) != 2 {
			t.Errorf("response: %+v", got)
		}
	})

	t.Run("when a row is broken, nothing is committed and it responds errors", func(t *testing.T) {
		dbuploads := mocks.NewMockUploadInterface()
		data, ctype := httptestutil.Multipart(
			t, handlers.FileField, "deliveries.xlsx", workbook(t, knownFarmerRow, brokenRow),
		)
		c, resp := httptestutil.Post(echo.New(), "/api/uploads/?kind=transactions&supply_chain=sc-1", data, ctype)
		if err := handlers.CommitUploadHandler(uploadNodes(), dbuploads, uploadedAt)(as(c, member)); err != nil {
			t.Fatal(err)
		}
		if resp.Code != http.StatusBadRequest {
			t.Errorf("status: %d", resp.Code)
		}
		if dbuploads.Calls.Commit.Times() != 0 {
			t.Error("Commit is called")
		}
		got := body[apijobs.UploadFailure](t, resp)
		if len(got.Validation.Errors) != 4 {
			t.Errorf("errors: %+v", got.Validation.Errors)
		}
	})

	t.Run("when the supply chain is not given, it is a bad request", func(t *testing.T) {
		data, ctype := httptestutil.Multipart(t, handlers.FileField, "x.xlsx", workbook(t, knownFarmerRow))
		c, _ := httptestutil.Post(echo.New(), "/api/uploads/?kind=transactions", data, ctype)
		err := handlers.CommitUploadHandler(uploadNodes(), mocks.NewMockUploadInterface(), uploadedAt)(as(c, member))
		if got := codeOf(err); got != http.StatusBadRequest {
			t.Errorf("status: %d (%v)", got, err)
		}
	})
}

func TestGetUploadHandler(t *testing.T) {
	dbuploads := mocks.NewMockUploadInterface()
	dbuploads.Impl.Get = func(ctx context.Context, id string) (fdb.Upload, error) {
		return fdb.Upload{Id: id, NodeId: "node-b", Status: fdb.UploadCommitted}, nil
	}
	c, _ := httptestutil.Get(echo.New(), "/api/uploads/up-1/")
	err := handlers.GetUploadHandler(dbuploads, "uploadId")(as(c, member, "uploadId", "up-1"))
	if got := codeOf(err); got != http.StatusForbidden {
		t.Errorf("status: %d (%v)", got, err)
	}
}

func TestRequestReportHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		body string
		want int
	}{
		"when a stock report is requested, it is queued": {
			body: `{"kind": "stock"}`, want: http.StatusOK,
		},
		"when since is not before until, it is a bad request": {
			body: `{"kind": "transactions", "since": "2026-03-01T00:00:00Z", "until": "2026-02-01T00:00:00Z"}`,
			want: http.StatusBadRequest,
		},
		"when the kind is unknown, it is a bad request": {
			body: `{"kind": "weather"}`, want: http.StatusBadRequest,
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbreports := mocks.NewMockReportInterface()
			dbreports.Impl.Request = func(ctx context.Context, param fdb.ReportParam) (fdb.ReportJob, error) {
				return fdb.ReportJob{Id: "r-1", NodeId: param.NodeId, Kind: param.Kind, Status: fdb.ReportQueued}, nil
			}
			c, resp := httptestutil.Post(
				echo.New(), "/api/reports/", strings.NewReader(testcase.body),
				httptestutil.ContentType("application/json"),
			)
			err := handlers.RequestReportHandler(dbreports)(as(c, member))
			if testcase.want != http.StatusOK {
				if got := codeOf(err); got != testcase.want {
					t.Errorf("status: %d (%v)", got, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got := body[apijobs.Report](t, resp)
			if got.Status != "queued" || got.NodeId != "node-a" || got.Kind != "stock" {
				t.Errorf("response: %+v", got)
			}
		})
	}
}

func TestReportFileHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "r-1.xlsx"), []byte("spreadsheet"), os.FileMode(0o644)); err != nil {
		t.Fatal(err)
	}

	for name, testcase := range map[string]struct {
		job       fdb.ReportJob
		principal auth.Principal
		want      int
	}{
		"when the report is done, it sends the file": {
			job:       fdb.ReportJob{Id: "r-1", NodeId: "node-a", Kind: fdb.StockReport, Status: fdb.ReportDone, File: "/elsewhere/r-1.xlsx"},
			principal: member,
			want:      http.StatusOK,
		},
		"when the report is running, it is a conflict": {
			job:       fdb.ReportJob{Id: "r-1", NodeId: "node-a", Kind: fdb.StockReport, Status: fdb.ReportRunning},
			principal: member,
			want:      http.StatusConflict,
		},
		"when the file has been removed, it is gone": {
			job:       fdb.ReportJob{Id: "r-2", NodeId: "node-a", Kind: fdb.StockReport, Status: fdb.ReportDone, File: "r-2.xlsx"},
			principal: member,
			want:      http.StatusGone,
		},
		"when the report is of another node, it is forbidden": {
			job:       fdb.ReportJob{Id: "r-1", NodeId: "node-b", Kind: fdb.StockReport, Status: fdb.ReportDone, File: "r-1.xlsx"},
			principal: member,
			want:      http.StatusForbidden,
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbreports := mocks.NewMockReportInterface()
			dbreports.Impl.Get = func(ctx context.Context, id string) (fdb.ReportJob, error) {
				return testcase.job, nil
			}
			c, resp := httptestutil.Get(echo.New(), "/api/reports/"+testcase.job.Id+"/file/")
			err := handlers.ReportFileHandler(dbreports, dir, "reportId")(
				as(c, testcase.principal, "reportId", testcase.job.Id),
			)
			if testcase.want != http.StatusOK {
				if got := codeOf(err); got != testcase.want {
					t.Errorf("status: %d (%v), want %d", got, err, testcase.want)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := resp.Body.String(); got != "spreadsheet" {
				t.Errorf("body: %q", got)
			}
			if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "stock-r-1.xlsx") {
				t.Errorf("content disposition: %s", cd)
			}
		})
	}
}
