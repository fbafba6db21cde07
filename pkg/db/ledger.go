package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Batch is a quantity of a product held by a node.
type Batch struct {
	Id     string
	Number int64

	ProductId string
	NodeId    string

	InitialQuantity decimal.Decimal
	CurrentQuantity decimal.Decimal
	Unit            string

	// transaction which has produced this batch.
	SourceTransactionId string

	CreatedAt time.Time
}

func (b *Batch) Equal(o *Batch) bool {
	if b == nil || o == nil {
		return b == nil && o == nil
	}
	return b.Id == o.Id &&
		b.Number == o.Number &&
		b.ProductId == o.ProductId &&
		b.NodeId == o.NodeId &&
		b.InitialQuantity.Equal(o.InitialQuantity) &&
		b.CurrentQuantity.Equal(o.CurrentQuantity) &&
		b.Unit == o.Unit &&
		b.SourceTransactionId == o.SourceTransactionId &&
		b.CreatedAt.Equal(o.CreatedAt)
}

// Consumed is how much quantity has been taken from this batch.
func (b *Batch) Consumed() decimal.Decimal {
	return b.InitialQuantity.Sub(b.CurrentQuantity)
}

// Untouched tells no quantity has been taken from this batch.
func (b *Batch) Untouched() bool {
	return b.CurrentQuantity.Equal(b.InitialQuantity)
}

// SourceBatch is quantity of a batch consumed by a transaction.
type SourceBatch struct {
	TransactionId string
	BatchId       string
	Quantity      decimal.Decimal
}

// Allocation is a request to consume quantity of a batch.
type Allocation struct {
	BatchId  string
	Quantity decimal.Decimal
}

// SumOf is the total quantity of allocations.
func SumOf(allocs []Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.Quantity)
	}
	return sum
}

type TransactionKind string

const (
	External TransactionKind = "external"
	Internal TransactionKind = "internal"
)

// ExternalType is the type of transactions between nodes.
type ExternalType string

const (
	// the source node holds no batch in the ledger (e.g. farmers).
	// Nothing is consumed.
	Incoming ExternalType = "incoming"

	// batches of the source node are consumed.
	Outgoing ExternalType = "outgoing"

	// compensation of a rejected transaction.
	Reverse ExternalType = "reverse"
)

// InternalType is the type of transactions inside a node.
type InternalType string

const (
	Processing InternalType = "processing"
	Merge      InternalType = "merge"
	Split      InternalType = "split"
	Loss       InternalType = "loss"
)

func AsExternalType(s string) (ExternalType, error) {
	switch ExternalType(s) {
	case Incoming, Outgoing:
		return ExternalType(s), nil
	default:
		return ExternalType(s), NewErrInvalidParam("type", fmt.Sprintf("unknown external transaction type: %s", s))
	}
}

func AsInternalType(s string) (InternalType, error) {
	switch InternalType(s) {
	case Processing, Merge, Split, Loss:
		return InternalType(s), nil
	default:
		return InternalType(s), NewErrInvalidParam("type", fmt.Sprintf("unknown internal transaction type: %s", s))
	}
}

type TransactionStatus string

const (
	TransactionCreated  TransactionStatus = "created"
	TransactionRejected TransactionStatus = "rejected"
)

type Transaction struct {
	Id     string
	Number int64
	Kind   TransactionKind

	// Type is an ExternalType or an InternalType, depending on Kind.
	Type string

	SourceNodeId      string
	DestinationNodeId string

	ProductId string
	Quantity  decimal.Decimal
	Unit      string

	// quantity gone away in processing or loss.
	Loss decimal.Decimal

	Price    decimal.Decimal
	Currency string

	Date          time.Time
	InvoiceNumber string

	Status          TransactionStatus
	RejectionReason string

	// for reverse transactions, the transaction rejected.
	Reverses string

	SourceBatches []SourceBatch

	// ids of batches produced by this transaction.
	ResultBatches []string

	CreatedAt time.Time
}

// ExternalParam is a request to record a transaction between nodes.
type ExternalParam struct {
	// Actor is the node recording this transaction.
	//
	// For Incoming, it should be the destination.
	// For Outgoing, it should be the source.
	Actor string

	Type ExternalType

	SourceNodeId      string
	DestinationNodeId string
	ProductId         string

	Quantity decimal.Decimal
	Unit     string

	Price    decimal.Decimal
	Currency string

	Date          time.Time
	InvoiceNumber string

	// Batches to be consumed, for Outgoing.
	// When empty, batches are allocated by FIFO.
	Batches []Allocation
}

// Validate checks the parameter and returns normalized one.
func (p ExternalParam) Validate() (ExternalParam, error) {
	p.Unit = strings.TrimSpace(p.Unit)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.InvoiceNumber = strings.TrimSpace(p.InvoiceNumber)

	switch p.Type {
	case Incoming:
		if p.Actor != p.DestinationNodeId {
			return p, NewErrForbidden(p.Actor, "record incoming transactions of other nodes")
		}
		if len(p.Batches) != 0 {
			return p, NewErrInvalidParam("batches", "incoming transactions consume no batches")
		}
	case Outgoing:
		if p.Actor != p.SourceNodeId {
			return p, NewErrForbidden(p.Actor, "record outgoing transactions of other nodes")
		}
	default:
		return p, NewErrInvalidParam("type", fmt.Sprintf("unknown external transaction type: %s", p.Type))
	}

	if p.SourceNodeId == "" {
		return p, NewErrInvalidParam("source", "required")
	}
	if p.DestinationNodeId == "" {
		return p, NewErrInvalidParam("destination", "required")
	}
	if p.SourceNodeId == p.DestinationNodeId {
		return p, NewErrInvalidParam("destination", "should differ from source")
	}
	if p.ProductId == "" {
		return p, NewErrInvalidParam("product", "required")
	}
	if !p.Quantity.IsPositive() {
		return p, fmt.Errorf("%w: should be positive, but %s", ErrInvalidQuantity, p.Quantity)
	}
	if p.Unit == "" {
		return p, NewErrInvalidParam("unit", "required")
	}
	if p.Price.IsNegative() {
		return p, NewErrInvalidParam("price", "should not be negative")
	}
	if !p.Price.IsZero() && p.Currency == "" {
		return p, NewErrInvalidParam("currency", "required when price is given")
	}
	if p.Date.IsZero() {
		return p, NewErrInvalidParam("date", "required")
	}
	seen := map[string]struct{}{}
	for nth, b := range p.Batches {
		if b.BatchId == "" {
			return p, NewErrInvalidParam(fmt.Sprintf("batches[%d].id", nth), "required")
		}
		if _, ok := seen[b.BatchId]; ok {
			return p, NewErrInvalidParam(fmt.Sprintf("batches[%d].id", nth), "duplicated")
		}
		seen[b.BatchId] = struct{}{}
		if !b.Quantity.IsPositive() {
			return p, fmt.Errorf("%w: batches[%d] should be positive", ErrInvalidQuantity, nth)
		}
	}
	if len(p.Batches) != 0 && !SumOf(p.Batches).Equal(p.Quantity) {
		return p, fmt.Errorf(
			"%w: batches sum up to %s, but transaction quantity is %s",
			ErrInvalidQuantity, SumOf(p.Batches), p.Quantity,
		)
	}
	return p, nil
}

// Output of internal transaction.
type Output struct {
	ProductId string
	Quantity  decimal.Decimal
}

// InternalParam is a request to record a processing inside of a node.
type InternalParam struct {
	Actor   string
	Type    InternalType
	Date    time.Time
	Sources []Allocation
	Outputs []Output
}

// Validate checks the shape of the parameter.
//
// Quantity balance depends on source batches, and is checked with them by the ledger.
func (p InternalParam) Validate() (InternalParam, error) {
	if p.Actor == "" {
		return p, NewErrInvalidParam("actor", "required")
	}
	if p.Date.IsZero() {
		return p, NewErrInvalidParam("date", "required")
	}
	if len(p.Sources) == 0 {
		return p, NewErrInvalidParam("sources", "required")
	}
	seen := map[string]struct{}{}
	for nth, s := range p.Sources {
		if s.BatchId == "" {
			return p, NewErrInvalidParam(fmt.Sprintf("sources[%d].id", nth), "required")
		}
		if _, ok := seen[s.BatchId]; ok {
			return p, NewErrInvalidParam(fmt.Sprintf("sources[%d].id", nth), "duplicated")
		}
		seen[s.BatchId] = struct{}{}
		if !s.Quantity.IsPositive() {
			return p, fmt.Errorf("%w: sources[%d] should be positive", ErrInvalidQuantity, nth)
		}
	}
	for nth, o := range p.Outputs {
		if !o.Quantity.IsPositive() {
			return p, fmt.Errorf("%w: outputs[%d] should be positive", ErrInvalidQuantity, nth)
		}
	}

	switch p.Type {
	case Merge:
		if len(p.Sources) < 2 {
			return p, NewErrInvalidParam("sources", "merge takes 2 or more batches")
		}
		if len(p.Outputs) != 1 {
			return p, NewErrInvalidParam("outputs", "merge makes exactly 1 batch")
		}
	case Split:
		if len(p.Sources) != 1 {
			return p, NewErrInvalidParam("sources", "split takes exactly 1 batch")
		}
		if len(p.Outputs) < 2 {
			return p, NewErrInvalidParam("outputs", "split makes 2 or more batches")
		}
	case Processing:
		if len(p.Outputs) == 0 {
			return p, NewErrInvalidParam("outputs", "processing makes 1 or more batches")
		}
	case Loss:
		if len(p.Outputs) != 0 {
			return p, NewErrInvalidParam("outputs", "loss makes no batches")
		}
	default:
		return p, NewErrInvalidParam("type", fmt.Sprintf("unknown internal transaction type: %s", p.Type))
	}
	return p, nil
}

// RejectParam is a request to reject an external transaction.
type RejectParam struct {
	TransactionId string
	Actor         string
	Reason        string
}

type TransactionQuery struct {
	NodeId string
	Since  *time.Time
	Until  *time.Time
}

type BatchQuery struct {
	NodeId    string
	ProductId string

	// only batches with positive current quantity.
	InStock bool
}

// Lineage is a part of the ledger reached from a batch.
type Lineage struct {
	Root         string
	Batches      map[string]Batch
	Transactions map[string]Transaction
}

// BatchBalance is a batch and the quantity its ledger entries account for.
type BatchBalance struct {
	Batch Batch

	// sum of quantities consumed by non-rejected transactions.
	Consumed decimal.Decimal

	// the batch has been produced by a rejected transaction.
	Voided bool
}

type LedgerInterface interface {
	RecordExternal(ctx context.Context, param ExternalParam) (Transaction, error)
	RejectExternal(ctx context.Context, param RejectParam) (Transaction, error)
	RecordInternal(ctx context.Context, param InternalParam) (Transaction, error)

	// Retrieve transactions by ids. Missing ids are absent in the result.
	GetTransactions(ctx context.Context, ids []string) (map[string]Transaction, error)

	// Ids of transactions in which the node is involved, newest first.
	FindTransactions(ctx context.Context, query TransactionQuery) ([]string, error)

	// Retrieve batches by ids. Missing ids are absent in the result.
	GetBatches(ctx context.Context, ids []string) (map[string]Batch, error)

	FindBatches(ctx context.Context, query BatchQuery) ([]Batch, error)

	// Lineage of the batch.
	//
	// depth limits number of transactions from the root. Non-positive depth means unlimited.
	Lineage(ctx context.Context, batchId string, direction Direction, depth int) (Lineage, error)

	// Balances of all batches held by the node.
	Balances(ctx context.Context, nodeId string) ([]BatchBalance, error)
}
