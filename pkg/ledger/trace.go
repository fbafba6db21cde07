package ledger

import (
	"sort"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/shopspring/decimal"
)

// Edge is a flow of quantity from a batch to another through a transaction.
type Edge struct {
	From          string
	To            string
	TransactionId string

	// quantity of From consumed by the transaction.
	Quantity decimal.Decimal
}

// Graph is a lineage as a DAG.
//
// Batches and Transactions are ordered by creation, Edges by (transaction, from, to).
type Graph struct {
	Root         string
	Batches      []fdb.Batch
	Transactions []fdb.Transaction
	Edges        []Edge
}

// Trace makes a graph from a lineage.
//
// Edges are made only between batches both in the lineage.
func Trace(l fdb.Lineage) Graph {
	g := Graph{
		Root:         l.Root,
		Batches:      make([]fdb.Batch, 0, len(l.Batches)),
		Transactions: make([]fdb.Transaction, 0, len(l.Transactions)),
		Edges:        []Edge{},
	}

	for _, b := range l.Batches {
		g.Batches = append(g.Batches, b)
	}
	sort.Slice(g.Batches, func(i, j int) bool {
		return g.Batches[i].Number < g.Batches[j].Number
	})

	for _, tx := range l.Transactions {
		g.Transactions = append(g.Transactions, tx)
	}
	sort.Slice(g.Transactions, func(i, j int) bool {
		return g.Transactions[i].Number < g.Transactions[j].Number
	})

	seen := map[[3]string]struct{}{}
	for _, tx := range g.Transactions {
		for _, sb := range tx.SourceBatches {
			if _, ok := l.Batches[sb.BatchId]; !ok {
				continue
			}
			for _, to := range tx.ResultBatches {
				if _, ok := l.Batches[to]; !ok {
					continue
				}
				key := [3]string{tx.Id, sb.BatchId, to}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				g.Edges = append(g.Edges, Edge{
					From: sb.BatchId, To: to, TransactionId: tx.Id, Quantity: sb.Quantity,
				})
			}
		}
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.TransactionId != b.TransactionId {
			return a.TransactionId < b.TransactionId
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return g
}
