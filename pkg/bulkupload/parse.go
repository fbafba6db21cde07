// Package bulkupload reads farmers and their deliveries from spreadsheets.
//
// An upload goes through Parse, Validate and then Commit of the database:
//
//	rows, errs, err := bulkupload.Parse(file, fdb.TransactionUpload)
//	v := bulkupload.Validate(ctx, fdb.TransactionUpload, rows, lookups)
//	v.Errors = append(errs, v.Errors...)
//	param, err := v.Param(actor, supplyChainId, filename)
package bulkupload

import (
	"fmt"
	"io"
	"slices"
	"strings"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	ColFarmerId       = "farmer_id"
	ColFirstName      = "first_name"
	ColLastName       = "last_name"
	ColPhone          = "phone"
	ColCountry        = "country"
	ColProvince       = "province"
	ColIdentification = "identification"

	ColDate          = "date"
	ColProduct       = "product"
	ColQuantity      = "quantity"
	ColUnit          = "unit"
	ColPrice         = "price"
	ColCurrency      = "currency"
	ColInvoiceNumber = "invoice_number"
)

var farmerColumns = []string{
	ColFarmerId, ColFirstName, ColLastName, ColPhone, ColCountry, ColProvince, ColIdentification,
}

var transactionColumns = append(slices.Clone(farmerColumns),
	ColDate, ColProduct, ColQuantity, ColUnit, ColPrice, ColCurrency, ColInvoiceNumber,
)

// Columns of the sheet for the kind.
func Columns(kind fdb.UploadKind) []string {
	if kind == fdb.TransactionUpload {
		return slices.Clone(transactionColumns)
	}
	return slices.Clone(farmerColumns)
}

func sheetName(kind fdb.UploadKind) string {
	if kind == fdb.TransactionUpload {
		return "Transactions"
	}
	return "Farmers"
}

// RowError is a problem of a cell. Row 0 is the header.
type RowError struct {
	Row     int
	Column  string
	Message string
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Column, e.Message)
}

// Row is a line of the sheet, keyed by normalized column names.
type Row struct {
	// Number is the 1-origin row number in the sheet. The header is row 1.
	Number int
	Cells  map[string]string
}

func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Cells[column])
}

func (r Row) empty() bool {
	for _, v := range r.Cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// normalize header: case and spaces are insignificant.
func normalize(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	return strings.Join(strings.Fields(h), "_")
}

// Parse reads rows of the sheet for the kind.
//
// The sheet is "Farmers" or "Transactions" by the kind, or the first sheet when it is missing.
// Blank rows are skipped. When the header lacks columns, they are returned as RowError of row 0
// and no rows are returned.
func Parse(r io.Reader, kind fdb.UploadKind) ([]Row, []RowError, error) {
	if _, err := fdb.AsUploadKind(string(kind)); err != nil {
		return nil, nil, err
	}

	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: not a spreadsheet: %w", fdb.ErrInvalidParam, err)
	}
	defer f.Close()

	sheet := sheetName(kind)
	sheets := f.GetSheetList()
	if !slices.Contains(sheets, sheet) {
		if len(sheets) == 0 {
			return nil, nil, fdb.NewErrInvalidParam("file", "no sheets")
		}
		sheet = sheets[0]
	}

	lines, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, xe.Wrap(err)
	}
	if len(lines) == 0 {
		return nil, []RowError{{Row: 0, Message: "header is missing"}}, nil
	}

	header := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		header[i] = normalize(h)
	}
	missing := []RowError{}
	for _, c := range Columns(kind) {
		if !slices.Contains(header, c) {
			missing = append(missing, RowError{Row: 0, Column: c, Message: "column is missing"})
		}
	}
	if len(missing) != 0 {
		return nil, missing, nil
	}

	rows := []Row{}
	for nth, line := range lines[1:] {
		row := Row{Number: nth + 2, Cells: map[string]string{}}
		for i, v := range line {
			if i < len(header) && header[i] != "" {
				row.Cells[header[i]] = v
			}
		}
		if row.empty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, []RowError{}, nil
}

// Template writes an empty sheet for the kind.
func Template(w io.Writer, kind fdb.UploadKind) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(kind)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return xe.Wrap(err)
	}
	cols := Columns(kind)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return xe.Wrap(err)
	}
	return xe.Wrap(f.Write(w))
}
