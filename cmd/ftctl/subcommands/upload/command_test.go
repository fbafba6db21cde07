package upload_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/cmd/ftctl/rest"
	"github.com/fairtrace/fairtrace/cmd/ftctl/rest/mock"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/upload"
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/xuri/excelize/v2"
)

var now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

// sheetFile writes a "Transactions" sheet into a temporary directory.
func sheetFile(t *testing.T, lines ...[]any) string {
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
	path := filepath.Join(t.TempDir(), "deliveries.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

var (
	goodRow = []any{"farmer-1", "", "", "", "", "", "", "2026-03-01", "Cherry", "120", "kg", "", "", "INV-1"}
	badRow  = []any{"", "Ana", "", "", "CO", "", "", "2026-03-02", "Cherry", "lots", "kg", "", "", "INV-2"}
)

func run(t *testing.T, clients func() (rest.FairtraceClient, error), args ...string) (string, error) {
	t.Helper()
	cmd := upload.New(clients, now)
	out := new(strings.Builder)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func noClient() (rest.FairtraceClient, error) {
	return nil, errors.New("it should not connect")
}

func TestValidate(t *testing.T) {
	t.Run("when rows are valid, it reports no errors without connecting", func(t *testing.T) {
		out, err := run(t, noClient, "validate", sheetFile(t, goodRow))
		if err != nil {
			t.Fatal(err, out)
		}
		if !strings.Contains(out, "1 rows, 0 errors") {
			t.Errorf("output: %s", out)
		}
	})

	t.Run("when rows are broken, it prints errors and fails", func(t *testing.T) {
		out, err := run(t, noClient, "validate", sheetFile(t, goodRow, badRow))
		if err == nil {
			t.Fatal("it should fail")
		}
		for _, want := range []string{
			"row 3, last_name: required",
			"row 3, quantity: should be a positive number",
			"2 rows, 2 errors",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output does not contain %q: %s", want, out)
			}
		}
	})

	t.Run("when the kind is unknown, it fails", func(t *testing.T) {
		if _, err := run(t, noClient, "validate", "--kind", "invoices", sheetFile(t, goodRow)); err == nil {
			t.Error("it should fail")
		}
	})
}

func TestCommit(t *testing.T) {
	t.Run("when the upload is accepted, it prints the upload", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.CommitUpload = func(ctx context.Context, kind, sc, filename string, _ io.Reader) (apijobs.Upload, error) {
			return apijobs.Upload{Id: "up-1", Status: "committed", RowCount: 1}, nil
		}
		path := sheetFile(t, goodRow)
		out, err := run(
			t, func() (rest.FairtraceClient, error) { return client, nil },
			"commit", "--supply-chain", "sc-1", path,
		)
		if err != nil {
			t.Fatal(err, out)
		}
		if !strings.Contains(out, `"id": "up-1"`) {
			t.Errorf("output: %s", out)
		}

		call := client.Calls.CommitUpload[0]
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if call.Kind != "transactions" || call.SupplyChainId != "sc-1" || call.Filename != "deliveries.xlsx" ||
			string(call.Content) != string(content) {
			t.Errorf("call: %s %s %s (%d bytes)", call.Kind, call.SupplyChainId, call.Filename, len(call.Content))
		}
	})

	t.Run("when rows have errors, it prints them and fails", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.CommitUpload = func(ctx context.Context, kind, sc, filename string, _ io.Reader) (apijobs.Upload, error) {
			return apijobs.Upload{}, &rest.UploadError{UploadFailure: apijobs.UploadFailure{
				Reason: "the sheet has errors. nothing is recorded.",
				Validation: apijobs.Validation{Errors: []apijobs.RowError{
					{Row: 2, Column: "farmer_id", Message: "unknown farmer"},
				}},
			}}
		}
		out, err := run(
			t, func() (rest.FairtraceClient, error) { return client, nil },
			"commit", "--supply-chain", "sc-1", sheetFile(t, goodRow),
		)
		if uerr := new(rest.UploadError); !errors.As(err, &uerr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "row 2, farmer_id: unknown farmer") {
			t.Errorf("output: %s", out)
		}
	})

	t.Run("when the supply chain is not given, it fails", func(t *testing.T) {
		if _, err := run(t, noClient, "commit", sheetFile(t, goodRow)); err == nil {
			t.Error("it should fail")
		}
	})
}
