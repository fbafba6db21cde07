package ledger

import (
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

type Problem string

const (
	NegativeQuantity Problem = "negative"
	ExceedsInitial   Problem = "exceeds_initial"
	Mismatch         Problem = "mismatch"
)

// Finding is a batch whose current quantity is not what its ledger entries tell.
type Finding struct {
	Batch    fdb.Batch
	Expected decimal.Decimal
	Problem  Problem
}

// Audit recomputes current quantities of batches.
//
// The expected current quantity is the initial one minus consumed by non-rejected
// transactions, or zero for batches made by rejected transactions.
func Audit(balances []fdb.BatchBalance) []Finding {
	findings := []Finding{}
	for _, bal := range balances {
		b := bal.Batch
		expected := b.InitialQuantity.Sub(bal.Consumed)
		if bal.Voided {
			expected = decimal.Zero
		}

		switch {
		case b.CurrentQuantity.IsNegative():
			findings = append(findings, Finding{Batch: b, Expected: expected, Problem: NegativeQuantity})
		case b.CurrentQuantity.GreaterThan(b.InitialQuantity):
			findings = append(findings, Finding{Batch: b, Expected: expected, Problem: ExceedsInitial})
		case !b.CurrentQuantity.Equal(expected):
			findings = append(findings, Finding{Batch: b, Expected: expected, Problem: Mismatch})
		}
	}
	return findings
}
