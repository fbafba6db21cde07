package bulkupload_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// sheet builds a spreadsheet in memory.
func sheet(t *testing.T, name string, lines [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", name); err != nil {
		t.Fatal(err)
	}
	for nth, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, nth+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(name, cell, &line); err != nil {
			t.Fatal(err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatal(err)
	}
	return buf
}

func header(kind fdb.UploadKind) []any {
	cols := bulkupload.Columns(kind)
	h := make([]any, len(cols))
	for i, c := range cols {
		h[i] = c
	}
	return h
}

func TestParse(t *testing.T) {
	t.Run("when the sheet is well formed, it returns non-blank rows keyed by column", func(t *testing.T) {
		buf := sheet(t, "Farmers", [][]any{
			{"Farmer ID", "First Name", "Last Name", "Phone", "Country", "Province", "Identification"},
			{"", "Ana", "Lopez", "+573001234567", "CO", "Huila", "123"},
			{},
			{"f-1"},
		})

		rows, errs, err := bulkupload.Parse(buf, fdb.FarmerUpload)
		if err != nil {
			t.Fatal(err)
		}
		if len(errs) != 0 {
			t.Fatalf("unexpected row errors: %v", errs)
		}

		if len(rows) != 2 {
			t.Fatalf("unexpected rows: %+v", rows)
		}
		if rows[0].Number != 2 || rows[0].Get(bulkupload.ColFirstName) != "Ana" ||
			rows[0].Get(bulkupload.ColProvince) != "Huila" {
			t.Errorf("unexpected first row: %+v", rows[0])
		}
		if rows[1].Number != 4 || rows[1].Get(bulkupload.ColFarmerId) != "f-1" {
			t.Errorf("unexpected second row: %+v", rows[1])
		}
	})

	t.Run("when the sheet for the kind is missing, it reads the first sheet", func(t *testing.T) {
		buf := sheet(t, "Data", [][]any{
			header(fdb.FarmerUpload),
			{"f-1"},
		})
		rows, errs, err := bulkupload.Parse(buf, fdb.FarmerUpload)
		if err != nil {
			t.Fatal(err)
		}
		if len(errs) != 0 || len(rows) != 1 {
			t.Errorf("unexpected result: rows=%+v, errs=%v", rows, errs)
		}
	})

	t.Run("when columns are missing in the header, it reports them as errors of row 0", func(t *testing.T) {
		buf := sheet(t, "Transactions", [][]any{
			header(fdb.FarmerUpload),
			{"f-1"},
		})
		rows, errs, err := bulkupload.Parse(buf, fdb.TransactionUpload)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("rows are returned: %+v", rows)
		}
		want := []bulkupload.RowError{}
		for _, c := range []string{
			bulkupload.ColDate, bulkupload.ColProduct, bulkupload.ColQuantity, bulkupload.ColUnit,
			bulkupload.ColPrice, bulkupload.ColCurrency, bulkupload.ColInvoiceNumber,
		} {
			want = append(want, bulkupload.RowError{Row: 0, Column: c, Message: "column is missing"})
		}
		if !cmp.Equal(errs, want) {
			t.Errorf("unexpected errors: %s", cmp.Diff(want, errs))
		}
	})

	t.Run("when it is not a spreadsheet, it returns ErrInvalidParam", func(t *testing.T) {
		_, _, err := bulkupload.Parse(bytes.NewBufferString("name,phone\n"), fdb.FarmerUpload)
		if !errors.Is(err, fdb.ErrInvalidParam) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("a template can be parsed back with no rows", func(t *testing.T) {
		buf := new(bytes.Buffer)
		if err := bulkupload.Template(buf, fdb.TransactionUpload); err != nil {
			t.Fatal(err)
		}
		rows, errs, err := bulkupload.Parse(buf, fdb.TransactionUpload)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 || len(errs) != 0 {
			t.Errorf("unexpected result: rows=%+v, errs=%v", rows, errs)
		}
	})
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	lookups := bulkupload.Lookups{
		Products: []fdb.Product{{Id: "p-coffee", SupplyChainId: "sc", Name: "Green Coffee"}},
		Farmers: map[string]fdb.Node{
			"f-1": {Id: "f-1", Type: fdb.Farmer, Name: "Ana Lopez"},
		},
		Now: now,
	}

	row := func(number int, cells map[string]string) bulkupload.Row {
		return bulkupload.Row{Number: number, Cells: cells}
	}
	delivery := func(number int, farmer map[string]string, overrides map[string]string) bulkupload.Row {
		cells := map[string]string{
			bulkupload.ColDate:     "2026-02-10",
			bulkupload.ColProduct:  "green coffee",
			bulkupload.ColQuantity: "120.5",
			bulkupload.ColUnit:     "kg",
		}
		for k, v := range farmer {
			cells[k] = v
		}
		for k, v := range overrides {
			cells[k] = v
		}
		return row(number, cells)
	}
	known := map[string]string{bulkupload.ColFarmerId: "f-1"}
	newFarmer := map[string]string{
		bulkupload.ColFirstName: "Juan",
		bulkupload.ColLastName:  "Perez",
		bulkupload.ColCountry:   "CO",
		bulkupload.ColPhone:     "+57 300 111 2222",
	}

	t.Run("when all rows are valid, it makes rows to be committed", func(t *testing.T) {
		v := bulkupload.Validate(context.Background(), fdb.TransactionUpload, []bulkupload.Row{
			delivery(2, known, map[string]string{
				bulkupload.ColPrice: "2.5", bulkupload.ColCurrency: "usd", bulkupload.ColInvoiceNumber: "INV-1",
			}),
			delivery(3, newFarmer, map[string]string{bulkupload.ColDate: "46050"}),
		}, lookups)

		if !v.OK() {
			t.Fatalf("unexpected errors: %v", v.Errors)
		}
		if len(v.Rows) != 2 {
			t.Fatalf("unexpected rows: %+v", v.Rows)
		}

		first := v.Rows[0]
		if first.Row != 2 || first.FarmerId != "f-1" || first.Farmer != nil {
			t.Errorf("unexpected farmer of first row: %+v", first)
		}
		tx := first.Transaction
		if tx == nil {
			t.Fatal("transaction is missing")
		}
		if tx.ProductId != "p-coffee" || !tx.Quantity.Equal(decimal.RequireFromString("120.5")) ||
			!tx.Price.Equal(decimal.RequireFromString("2.5")) || tx.Currency != "USD" ||
			tx.InvoiceNumber != "INV-1" || !tx.Date.Equal(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected transaction: %+v", tx)
		}

		second := v.Rows[1]
		if second.Farmer == nil || second.Farmer.Phone != "+573001112222" || second.Farmer.Type != fdb.Farmer {
			t.Errorf("unexpected new farmer: %+v", second.Farmer)
		}
		// serial 46050 of spreadsheets is 2026-01-28.
		if second.Transaction == nil || !second.Transaction.Date.Equal(time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date: %+v", second.Transaction)
		}

		param, err := v.Param("coop", "sc", "deliveries.xlsx")
		if err != nil {
			t.Fatal(err)
		}
		if param.Actor != "coop" || param.SupplyChainId != "sc" || param.Kind != fdb.TransactionUpload ||
			param.Filename != "deliveries.xlsx" || len(param.Rows) != 2 {
			t.Errorf("unexpected param: %+v", param)
		}
	})

	for name, testcase := range map[string]struct {
		kind fdb.UploadKind
		rows []bulkupload.Row
		then []bulkupload.RowError
	}{
		"when required values are missing, each is reported": {
			kind: fdb.FarmerUpload,
			rows: []bulkupload.Row{row(2, map[string]string{bulkupload.ColFirstName: "Juan"})},
			then: []bulkupload.RowError{
				{Row: 2, Column: bulkupload.ColCountry, Message: "required"},
				{Row: 2, Column: bulkupload.ColLastName, Message: "required"},
			},
		},
		"when a farmer id is unknown, it is reported": {
			kind: fdb.FarmerUpload,
			rows: []bulkupload.Row{row(5, map[string]string{bulkupload.ColFarmerId: "f-9"})},
			then: []bulkupload.RowError{
				{Row: 5, Column: bulkupload.ColFarmerId, Message: "unknown farmer"},
			},
		},
		"when a phone is malformed, it is reported": {
			kind: fdb.FarmerUpload,
			rows: []bulkupload.Row{row(2, map[string]string{
				bulkupload.ColFirstName: "Juan", bulkupload.ColLastName: "Perez",
				bulkupload.ColCountry: "CO", bulkupload.ColPhone: "300-111",
			})},
			then: []bulkupload.RowError{
				{Row: 2, Column: bulkupload.ColPhone, Message: "should be + followed by 7-15 digits"},
			},
		},
		"when values of a delivery are broken, each is reported": {
			kind: fdb.TransactionUpload,
			rows: []bulkupload.Row{delivery(2, known, map[string]string{
				bulkupload.ColDate:     "2026-04-01",
				bulkupload.ColProduct:  "cocoa",
				bulkupload.ColQuantity: "-3",
				bulkupload.ColPrice:    "1.2",
			})},
			then: []bulkupload.RowError{
				{Row: 2, Column: bulkupload.ColCurrency, Message: "required when price is given"},
				{Row: 2, Column: bulkupload.ColDate, Message: "should not be in the future"},
				{Row: 2, Column: bulkupload.ColProduct, Message: "unknown product"},
				{Row: 2, Column: bulkupload.ColQuantity, Message: "should be a positive number"},
			},
		},
		"when a date is not a date, it is reported": {
			kind: fdb.TransactionUpload,
			rows: []bulkupload.Row{delivery(2, known, map[string]string{bulkupload.ColDate: "yesterday"})},
			then: []bulkupload.RowError{
				{Row: 2, Column: bulkupload.ColDate, Message: "should be a date (YYYY-MM-DD)"},
			},
		},
		"when invoice numbers or new farmers are duplicated, later rows are reported": {
			kind: fdb.TransactionUpload,
			rows: []bulkupload.Row{
				delivery(4, newFarmer, map[string]string{bulkupload.ColInvoiceNumber: "INV-1"}),
				delivery(2, known, map[string]string{bulkupload.ColInvoiceNumber: "INV-1"}),
				delivery(3, newFarmer, nil),
			},
			then: []bulkupload.RowError{
				{Row: 3, Column: bulkupload.ColFirstName, Message: "the same farmer is in row 4; refer it with farmer_id"},
				{Row: 2, Column: bulkupload.ColInvoiceNumber, Message: "duplicated with row 4"},
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			v := bulkupload.Validate(context.Background(), testcase.kind, testcase.rows, lookups)
			want := append([]bulkupload.RowError{}, testcase.then...)
			sortErrors(want)
			if !cmp.Equal(v.Errors, want) {
				t.Errorf("unexpected errors: %s", cmp.Diff(want, v.Errors))
			}
			if _, err := v.Param("coop", "sc", "file.xlsx"); !errors.Is(err, fdb.ErrInvalidParam) {
				t.Errorf("param is made from invalid rows: %v", err)
			}
		})
	}
}

func TestValidate_Offline(t *testing.T) {
	lookups := bulkupload.Lookups{Now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Offline: true}
	rows := []bulkupload.Row{
		{Number: 2, Cells: map[string]string{
			bulkupload.ColFarmerId: "f-unknown", bulkupload.ColDate: "2026-02-10",
			bulkupload.ColProduct: "p-unknown", bulkupload.ColQuantity: "10", bulkupload.ColUnit: "kg",
		}},
		{Number: 3, Cells: map[string]string{
			bulkupload.ColFarmerId: "f-unknown", bulkupload.ColDate: "2026-02-10",
			bulkupload.ColProduct: "p-unknown", bulkupload.ColQuantity: "zero",
		}},
	}

	v := bulkupload.Validate(context.Background(), fdb.TransactionUpload, rows, lookups)
	want := []bulkupload.RowError{
		{Row: 3, Column: bulkupload.ColQuantity, Message: "should be a positive number"},
		{Row: 3, Column: bulkupload.ColUnit, Message: "required"},
	}
	if !cmp.Equal(v.Errors, want) {
		t.Errorf("unexpected errors: %s", cmp.Diff(want, v.Errors))
	}
	if v.Rows[0].Transaction == nil || v.Rows[0].Transaction.ProductId != "p-unknown" {
		t.Errorf("unexpected row: %+v", v.Rows[0])
	}

	ok := bulkupload.Validate(context.Background(), fdb.TransactionUpload, rows[:1], lookups)
	if !ok.OK() {
		t.Fatalf("unexpected errors: %v", ok.Errors)
	}
	if _, err := ok.Param("coop", "sc", "file.xlsx"); !errors.Is(err, fdb.ErrInvalidParam) {
		t.Errorf("param is made from rows validated offline: %v", err)
	}
}

func sortErrors(errs []bulkupload.RowError) {
	for i := 1; i < len(errs); i++ {
		for j := i; j > 0; j-- {
			a, b := errs[j-1], errs[j]
			if a.Row < b.Row || (a.Row == b.Row && a.Column <= b.Column) {
				break
			}
			errs[j-1], errs[j] = b, a
		}
	}
}
