package bulkupload

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Lookups are records rows can refer to.
type Lookups struct {
	// Products of the supply chain.
	Products []fdb.Product

	// Farmers supplying the uploader, by id.
	Farmers map[string]fdb.Node

	// Now is the upper bound of dates.
	Now time.Time

	// Concurrency of row checks. Non-positive means 8.
	Concurrency int

	// Offline skips checks of references to products and farmers.
	// Rows are not committable when it is set.
	Offline bool
}

func (l Lookups) product(nameOrId string) (fdb.Product, bool) {
	for _, p := range l.Products {
		if p.Id == nameOrId || strings.EqualFold(p.Name, nameOrId) {
			return p, true
		}
	}
	return fdb.Product{}, false
}

// Validation is the outcome of Validate.
type Validation struct {
	Kind fdb.UploadKind

	// Rows are checked rows. They are meaningful only when Errors is empty.
	Rows []fdb.UploadRow

	// Errors ordered by row, then column.
	Errors []RowError

	// Offline tells references in rows are not checked.
	Offline bool
}

func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

// Param makes the parameter to commit the upload.
//
// When the validation has errors, it returns ErrInvalidParam.
func (v Validation) Param(actor string, supplyChainId string, filename string) (fdb.UploadParam, error) {
	if v.Offline {
		return fdb.UploadParam{}, fdb.NewErrInvalidParam("file", "validated offline. references are not checked")
	}
	if !v.OK() {
		return fdb.UploadParam{}, fdb.NewErrInvalidParam(
			"file", fmt.Sprintf("%d errors found, first: %s", len(v.Errors), v.Errors[0]),
		)
	}
	return fdb.UploadParam{
		Actor:         actor,
		SupplyChainId: supplyChainId,
		Kind:          v.Kind,
		Filename:      filename,
		Rows:          v.Rows,
	}, nil
}

// Validate checks rows.
//
// Each row is checked concurrently. Checks across rows (duplicated invoice numbers, the same new
// farmer twice) run after them.
func Validate(ctx context.Context, kind fdb.UploadKind, rows []Row, lookups Lookups) Validation {
	checked := make([]fdb.UploadRow, len(rows))
	errs := make([][]RowError, len(rows))

	limit := lookups.Concurrency
	if limit <= 0 {
		limit = 8
	}
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, row := range rows {
		eg.Go(func() error {
			checked[i], errs[i] = checkRow(kind, row, lookups)
			return nil
		})
	}
	eg.Wait()

	v := Validation{Kind: kind, Rows: checked, Errors: []RowError{}, Offline: lookups.Offline}
	for _, e := range errs {
		v.Errors = append(v.Errors, e...)
	}
	v.Errors = append(v.Errors, crossCheck(rows)...)

	sort.SliceStable(v.Errors, func(i, j int) bool {
		a, b := v.Errors[i], v.Errors[j]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
	return v
}

func checkRow(kind fdb.UploadKind, row Row, lookups Lookups) (fdb.UploadRow, []RowError) {
	errs := []RowError{}
	fail := func(column, message string) {
		errs = append(errs, RowError{Row: row.Number, Column: column, Message: message})
	}
	required := func(column string) string {
		v := row.Get(column)
		if v == "" {
			fail(column, "required")
		}
		return v
	}

	ur := fdb.UploadRow{Row: row.Number}

	if id := row.Get(ColFarmerId); id != "" {
		if _, ok := lookups.Farmers[id]; !ok && !lookups.Offline {
			fail(ColFarmerId, "unknown farmer")
		}
		ur.FarmerId = id
	} else {
		p := fdb.NodeParam{
			Type:           fdb.Farmer,
			FirstName:      required(ColFirstName),
			LastName:       required(ColLastName),
			Country:        required(ColCountry),
			Province:       row.Get(ColProvince),
			Phone:          strings.ReplaceAll(row.Get(ColPhone), " ", ""),
			Identification: row.Get(ColIdentification),
		}
		if p.Phone != "" && !fdb.ValidPhone(p.Phone) {
			fail(ColPhone, "should be + followed by 7-15 digits")
		}
		ur.Farmer = &p
	}

	if kind != fdb.TransactionUpload {
		return ur, errs
	}

	tx := fdb.ExternalParam{
		Unit:          required(ColUnit),
		Currency:      strings.ToUpper(row.Get(ColCurrency)),
		InvoiceNumber: row.Get(ColInvoiceNumber),
	}

	if s := required(ColDate); s != "" {
		date, err := parseDate(s)
		switch {
		case err != nil:
			fail(ColDate, "should be a date (YYYY-MM-DD)")
		case date.After(lookups.Now):
			fail(ColDate, "should not be in the future")
		default:
			tx.Date = date
		}
	}

	if s := required(ColProduct); s != "" {
		if p, ok := lookups.product(s); ok {
			tx.ProductId = p.Id
		} else if lookups.Offline {
			tx.ProductId = s
		} else {
			fail(ColProduct, "unknown product")
		}
	}

	if s := required(ColQuantity); s != "" {
		q, err := decimal.NewFromString(s)
		if err != nil || !q.IsPositive() {
			fail(ColQuantity, "should be a positive number")
		} else {
			tx.Quantity = q
		}
	}

	if s := row.Get(ColPrice); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil || !p.IsPositive() {
			fail(ColPrice, "should be a positive number")
		} else {
			tx.Price = p
		}
		if tx.Currency == "" {
			fail(ColCurrency, "required when price is given")
		}
	}

	ur.Transaction = &tx
	return ur, errs
}

// parseDate reads ISO dates, or date serials of spreadsheets.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	d, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

func crossCheck(rows []Row) []RowError {
	errs := []RowError{}
	invoices := map[string]int{}
	farmers := map[string]int{}

	for _, row := range rows {
		if inv := row.Get(ColInvoiceNumber); inv != "" {
			if first, ok := invoices[inv]; ok {
				errs = append(errs, RowError{
					Row: row.Number, Column: ColInvoiceNumber,
					Message: fmt.Sprintf("duplicated with row %d", first),
				})
			} else {
				invoices[inv] = row.Number
			}
		}

		if row.Get(ColFarmerId) != "" {
			continue
		}
		key := strings.ToLower(strings.Join([]string{
			row.Get(ColFirstName), row.Get(ColLastName), strings.ReplaceAll(row.Get(ColPhone), " ", ""),
		}, "\x00"))
		if first, ok := farmers[key]; ok {
			errs = append(errs, RowError{
				Row: row.Number, Column: ColFirstName,
				Message: fmt.Sprintf("the same farmer is in row %d; refer it with farmer_id", first),
			})
		} else {
			farmers[key] = row.Number
		}
	}
	return errs
}
