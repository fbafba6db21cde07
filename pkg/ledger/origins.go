package ledger

import (
	"fmt"
	"sort"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

// precision of shares, in decimal places.
const sharePrecision = 16

// Origin is a transaction which has brought quantity into the ledger.
type Origin struct {
	TransactionId string
	SourceNodeId  string

	// Share is the fraction of the root batch stemming from this origin.
	Share decimal.Decimal

	// Quantity is Share of the initial quantity of the root batch.
	Quantity decimal.Decimal
}

// Origins attributes the root batch of the lineage to transactions which consume no batches.
//
// The lineage should be upstream and unlimited.
//
// Each batch made by a transaction consists of the batches the transaction has consumed,
// in proportion to consumed quantities. Shares multiply along paths and add across paths.
//
// Origins are ordered by Share descending, then TransactionId.
func Origins(l fdb.Lineage) ([]Origin, error) {
	root, ok := l.Batches[l.Root]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", fdb.ErrMissing, l.Root)
	}

	memo := map[string]map[string]decimal.Decimal{}
	var shareOf func(batchId string) (map[string]decimal.Decimal, error)
	shareOf = func(batchId string) (map[string]decimal.Decimal, error) {
		if s, ok := memo[batchId]; ok {
			return s, nil
		}
		b, ok := l.Batches[batchId]
		if !ok {
			return nil, fmt.Errorf("%w: batch %s is not in lineage", fdb.ErrMissing, batchId)
		}
		tx, ok := l.Transactions[b.SourceTransactionId]
		if !ok {
			return nil, fmt.Errorf(
				"%w: transaction %s (producing batch %s) is not in lineage",
				fdb.ErrMissing, b.SourceTransactionId, batchId,
			)
		}

		share := map[string]decimal.Decimal{}
		total := decimal.Zero
		for _, sb := range tx.SourceBatches {
			total = total.Add(sb.Quantity)
		}
		if !total.IsPositive() {
			share[tx.Id] = decimal.NewFromInt(1)
			memo[batchId] = share
			return share, nil
		}

		for _, sb := range tx.SourceBatches {
			upper, err := shareOf(sb.BatchId)
			if err != nil {
				return nil, err
			}
			ratio := sb.Quantity.DivRound(total, sharePrecision)
			for origin, s := range upper {
				share[origin] = share[origin].Add(s.Mul(ratio).Round(sharePrecision))
			}
		}
		memo[batchId] = share
		return share, nil
	}

	share, err := shareOf(root.Id)
	if err != nil {
		return nil, err
	}

	origins := make([]Origin, 0, len(share))
	for txId, s := range share {
		origins = append(origins, Origin{
			TransactionId: txId,
			SourceNodeId:  l.Transactions[txId].SourceNodeId,
			Share:         s,
			Quantity:      root.InitialQuantity.Mul(s).Round(sharePrecision),
		})
	}
	sort.Slice(origins, func(i, j int) bool {
		if c := origins[i].Share.Cmp(origins[j].Share); c != 0 {
			return c > 0
		}
		return origins[i].TransactionId < origins[j].TransactionId
	})
	return origins, nil
}
