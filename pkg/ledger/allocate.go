// Package ledger holds the quantity rules of batches and transactions.
//
// Functions in this package are pure: they take batches and transactions
// loaded (and locked) by the storage layer, and tell what should be written.
package ledger

import (
	"fmt"
	"sort"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

// Allocate decides quantities to be consumed from batches.
//
// available are batches which the consumer can take from: held by the node, of the product.
//
// When explicit is not empty, it is validated against available and returned.
// Otherwise, batches are taken first-in-first-out, ordered by CreatedAt then Id.
//
// If batches do not hold enough, it returns *fdb.ErrShortage.
func Allocate(available []fdb.Batch, want decimal.Decimal, explicit []fdb.Allocation) ([]fdb.Allocation, error) {
	if !want.IsPositive() {
		return nil, fmt.Errorf("%w: should be positive, but %s", fdb.ErrInvalidQuantity, want)
	}

	if len(explicit) != 0 {
		return checkExplicit(available, want, explicit)
	}

	fifo := make([]fdb.Batch, 0, len(available))
	for _, b := range available {
		if b.CurrentQuantity.IsPositive() {
			fifo = append(fifo, b)
		}
	}
	sort.SliceStable(fifo, func(i, j int) bool {
		if !fifo[i].CreatedAt.Equal(fifo[j].CreatedAt) {
			return fifo[i].CreatedAt.Before(fifo[j].CreatedAt)
		}
		return fifo[i].Id < fifo[j].Id
	})

	allocs := []fdb.Allocation{}
	rest := want
	for _, b := range fifo {
		if !rest.IsPositive() {
			break
		}
		take := decimal.Min(rest, b.CurrentQuantity)
		allocs = append(allocs, fdb.Allocation{BatchId: b.Id, Quantity: take})
		rest = rest.Sub(take)
	}

	if rest.IsPositive() {
		return nil, &fdb.ErrShortage{Want: want, Have: want.Sub(rest)}
	}
	return allocs, nil
}

func checkExplicit(available []fdb.Batch, want decimal.Decimal, explicit []fdb.Allocation) ([]fdb.Allocation, error) {
	byId := map[string]fdb.Batch{}
	for _, b := range available {
		byId[b.Id] = b
	}

	taken := map[string]decimal.Decimal{}
	for nth, a := range explicit {
		b, ok := byId[a.BatchId]
		if !ok {
			return nil, fdb.NewErrInvalidParam(
				fmt.Sprintf("batches[%d].id", nth),
				fmt.Sprintf("batch %s is not available for this transaction", a.BatchId),
			)
		}
		if !a.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: batches[%d] should be positive", fdb.ErrInvalidQuantity, nth)
		}
		t := taken[a.BatchId].Add(a.Quantity)
		if t.GreaterThan(b.CurrentQuantity) {
			return nil, &fdb.ErrShortage{BatchId: b.Id, Want: t, Have: b.CurrentQuantity}
		}
		taken[a.BatchId] = t
	}

	if sum := fdb.SumOf(explicit); !sum.Equal(want) {
		return nil, fmt.Errorf(
			"%w: batches sum up to %s, but %s is wanted",
			fdb.ErrInvalidQuantity, sum, want,
		)
	}
	return explicit, nil
}
