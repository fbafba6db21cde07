package ledger

import (
	"fmt"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

// CheckInternal checks quantities of an internal transaction.
//
// sources are batches referred by alloc, already verified to be held by the actor.
// They should be in one unit.
//
// It returns quantity leaving the ledger: the processing loss, or everything for Loss.
func CheckInternal(
	typ fdb.InternalType,
	sources map[string]fdb.Batch,
	alloc []fdb.Allocation,
	outputs []fdb.Output,
) (decimal.Decimal, error) {
	in := decimal.Zero
	products := map[string]struct{}{}
	unit := ""
	for nth, a := range alloc {
		b, ok := sources[a.BatchId]
		if !ok {
			return decimal.Zero, fmt.Errorf(
				"%w: sources[%d]: batch %s", fdb.ErrMissing, nth, a.BatchId,
			)
		}
		if a.Quantity.GreaterThan(b.CurrentQuantity) {
			return decimal.Zero, &fdb.ErrShortage{BatchId: b.Id, Want: a.Quantity, Have: b.CurrentQuantity}
		}
		if nth == 0 {
			unit = b.Unit
		} else if b.Unit != unit {
			return decimal.Zero, fdb.NewErrInvalidParam(
				"sources", fmt.Sprintf("batches should be in one unit: %s and %s", unit, b.Unit),
			)
		}
		in = in.Add(a.Quantity)
		products[b.ProductId] = struct{}{}
	}

	out := decimal.Zero
	for _, o := range outputs {
		out = out.Add(o.Quantity)
	}

	sameProduct := func() error {
		if len(products) != 1 {
			return fdb.NewErrInvalidParam("sources", fmt.Sprintf("%s takes batches of one product", typ))
		}
		for nth, o := range outputs {
			if _, ok := products[o.ProductId]; !ok {
				return fdb.NewErrInvalidParam(
					fmt.Sprintf("outputs[%d].product", nth),
					fmt.Sprintf("%s keeps the product of sources", typ),
				)
			}
		}
		return nil
	}

	switch typ {
	case fdb.Merge, fdb.Split:
		if err := sameProduct(); err != nil {
			return decimal.Zero, err
		}
		if !out.Equal(in) {
			return decimal.Zero, fmt.Errorf(
				"%w: %s should keep quantity: sources %s, outputs %s",
				fdb.ErrInvalidQuantity, typ, in, out,
			)
		}
		return decimal.Zero, nil
	case fdb.Processing:
		if out.GreaterThan(in) {
			return decimal.Zero, fmt.Errorf(
				"%w: processing cannot gain quantity: sources %s, outputs %s",
				fdb.ErrInvalidQuantity, in, out,
			)
		}
		return in.Sub(out), nil
	case fdb.Loss:
		return in, nil
	default:
		return decimal.Zero, fdb.NewErrInvalidParam("type", fmt.Sprintf("unknown internal transaction type: %s", typ))
	}
}
