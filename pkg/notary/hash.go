// Package notary anchors transactions to a consensus service.
//
// A transaction is notarized with the hash of its immutable fields.
// Anyone holding the transaction can recompute the hash and compare it with the one
// recorded on the consensus service.
package notary

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/shopspring/decimal"
)

type canonicalSource struct {
	BatchId  string `json:"batch"`
	Quantity string `json:"quantity"`
}

// field order is the canonical order.
type canonical struct {
	Id            string            `json:"id"`
	Number        int64             `json:"number"`
	Kind          string            `json:"kind"`
	Type          string            `json:"type"`
	Source        string            `json:"source"`
	Destination   string            `json:"destination"`
	Product       string            `json:"product"`
	Quantity      string            `json:"quantity"`
	Unit          string            `json:"unit"`
	Loss          string            `json:"loss"`
	Price         string            `json:"price"`
	Currency      string            `json:"currency"`
	Date          string            `json:"date"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Reverses      string            `json:"reverses"`
	SourceBatches []canonicalSource `json:"sourceBatches"`
	ResultBatches []string          `json:"resultBatches"`
}

func normalize(d decimal.Decimal) string {
	// String() drops trailing zeros: 1.50 and 1.5 are the same.
	return d.String()
}

// Canonical is the canonical JSON of the immutable fields of the transaction.
//
// Status and rejection reason are not included.
// Date is taken at microsecond precision, as the database stores it.
func Canonical(tx fdb.Transaction) ([]byte, error) {
	sources := make([]canonicalSource, 0, len(tx.SourceBatches))
	for _, sb := range tx.SourceBatches {
		sources = append(sources, canonicalSource{BatchId: sb.BatchId, Quantity: normalize(sb.Quantity)})
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].BatchId < sources[j].BatchId
	})

	results := append([]string{}, tx.ResultBatches...)
	sort.Strings(results)

	buf, err := json.Marshal(canonical{
		Id:            tx.Id,
		Number:        tx.Number,
		Kind:          string(tx.Kind),
		Type:          tx.Type,
		Source:        tx.SourceNodeId,
		Destination:   tx.DestinationNodeId,
		Product:       tx.ProductId,
		Quantity:      normalize(tx.Quantity),
		Unit:          tx.Unit,
		Loss:          normalize(tx.Loss),
		Price:         normalize(tx.Price),
		Currency:      tx.Currency,
		Date:          tx.Date.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano),
		InvoiceNumber: tx.InvoiceNumber,
		Reverses:      tx.Reverses,
		SourceBatches: sources,
		ResultBatches: results,
	})
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return buf, nil
}

// Hash is hex encoded SHA-256 of Canonical(tx).
func Hash(tx fdb.Transaction) (string, error) {
	buf, err := Canonical(tx)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
