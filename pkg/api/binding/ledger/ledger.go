package ledger

import (
	"strings"
	"time"

	apiledger "github.com/fairtrace/fairtrace/pkg/api/types/ledger"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/ledger"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/fairtrace/fairtrace/pkg/utils"
	"github.com/shopspring/decimal"
)

// ParseDate reads "2006-01-02" or RFC3339 date-time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fdb.NewErrInvalidParam("date", "should be 2006-01-02 or RFC3339: "+s)
	}
	return t, nil
}

func ComposeBatch(b fdb.Batch) apiledger.Batch {
	return apiledger.Batch{
		Id:                  b.Id,
		Number:              b.Number,
		ProductId:           b.ProductId,
		NodeId:              b.NodeId,
		InitialQuantity:     b.InitialQuantity,
		CurrentQuantity:     b.CurrentQuantity,
		Unit:                b.Unit,
		SourceTransactionId: b.SourceTransactionId,
		CreatedAt:           b.CreatedAt,
	}
}

func ComposeTransaction(tx fdb.Transaction) apiledger.Transaction {
	results := tx.ResultBatches
	if results == nil {
		results = []string{}
	}
	return apiledger.Transaction{
		Id:                tx.Id,
		Number:            tx.Number,
		Kind:              string(tx.Kind),
		Type:              tx.Type,
		SourceNodeId:      tx.SourceNodeId,
		DestinationNodeId: tx.DestinationNodeId,
		ProductId:         tx.ProductId,
		Quantity:          tx.Quantity,
		Unit:              tx.Unit,
		Loss:              tx.Loss,
		Price:             tx.Price,
		Currency:          tx.Currency,
		Date:              tx.Date.Format(time.DateOnly),
		InvoiceNumber:     tx.InvoiceNumber,
		Status:            string(tx.Status),
		RejectionReason:   tx.RejectionReason,
		Reverses:          tx.Reverses,
		SourceBatches: utils.Map(tx.SourceBatches, func(sb fdb.SourceBatch) apiledger.SourceBatch {
			return apiledger.SourceBatch{BatchId: sb.BatchId, Quantity: sb.Quantity}
		}),
		ResultBatches: results,
		CreatedAt:     tx.CreatedAt,
	}
}

func parseAllocations(sbs []apiledger.SourceBatch) []fdb.Allocation {
	return utils.Map(sbs, func(sb apiledger.SourceBatch) fdb.Allocation {
		return fdb.Allocation{BatchId: sb.BatchId, Quantity: sb.Quantity}
	})
}

// ParseExternalSpec makes a parameter to record an external transaction by actor.
func ParseExternalSpec(actor string, spec apiledger.ExternalSpec) (fdb.ExternalParam, error) {
	typ, err := fdb.AsExternalType(spec.Type)
	if err != nil {
		return fdb.ExternalParam{}, err
	}
	date, err := ParseDate(spec.Date)
	if err != nil {
		return fdb.ExternalParam{}, err
	}
	return fdb.ExternalParam{
		Actor:             actor,
		Type:              typ,
		SourceNodeId:      spec.SourceNodeId,
		DestinationNodeId: spec.DestinationNodeId,
		ProductId:         spec.ProductId,
		Quantity:          spec.Quantity,
		Unit:              spec.Unit,
		Price:             spec.Price,
		Currency:          spec.Currency,
		Date:              date,
		InvoiceNumber:     spec.InvoiceNumber,
		Batches:           parseAllocations(spec.Batches),
	}, nil
}

func ParseInternalSpec(actor string, spec apiledger.InternalSpec) (fdb.InternalParam, error) {
	typ, err := fdb.AsInternalType(spec.Type)
	if err != nil {
		return fdb.InternalParam{}, err
	}
	date, err := ParseDate(spec.Date)
	if err != nil {
		return fdb.InternalParam{}, err
	}
	return fdb.InternalParam{
		Actor:   actor,
		Type:    typ,
		Date:    date,
		Sources: parseAllocations(spec.Sources),
		Outputs: utils.Map(spec.Outputs, func(o apiledger.Output) fdb.Output {
			return fdb.Output{ProductId: o.ProductId, Quantity: o.Quantity}
		}),
	}, nil
}

// Redact clears commercial terms of the transaction: price, currency, invoice and rejection reason.
//
// Quantities, parties and batches are kept, as they are what traces are made of.
func Redact(tx fdb.Transaction) fdb.Transaction {
	tx.Price = decimal.Zero
	tx.Currency = ""
	tx.InvoiceNumber = ""
	tx.RejectionReason = ""
	return tx
}

func ComposeTrace(g ledger.Graph, direction fdb.Direction) apiledger.Trace {
	return apiledger.Trace{
		Root:         g.Root,
		Direction:    string(direction),
		Batches:      utils.Map(g.Batches, ComposeBatch),
		Transactions: utils.Map(g.Transactions, ComposeTransaction),
		Edges: utils.Map(g.Edges, func(e ledger.Edge) apiledger.Edge {
			return apiledger.Edge{From: e.From, To: e.To, TransactionId: e.TransactionId, Quantity: e.Quantity}
		}),
	}
}

func ComposeOrigins(batchId string, origins []ledger.Origin) apiledger.Origins {
	return apiledger.Origins{
		BatchId: batchId,
		Origins: utils.Map(origins, func(o ledger.Origin) apiledger.Origin {
			return apiledger.Origin{
				TransactionId: o.TransactionId,
				SourceNodeId:  o.SourceNodeId,
				Share:         o.Share,
				Quantity:      o.Quantity,
			}
		}),
	}
}

func ComposeAudit(nodeId string, batches int, findings []ledger.Finding) apiledger.Audit {
	return apiledger.Audit{
		NodeId:  nodeId,
		Batches: batches,
		Findings: utils.Map(findings, func(f ledger.Finding) apiledger.Finding {
			return apiledger.Finding{Batch: ComposeBatch(f.Batch), Expected: f.Expected, Problem: string(f.Problem)}
		}),
	}
}

func ComposeProof(p notary.Proof) apiledger.Proof {
	out := apiledger.Proof{
		TransactionId: p.TransactionId,
		Hash:          p.Hash,
		NotarizedHash: p.NotarizedHash,
		Status:        string(p.Status),
		Verified:      p.Verified,
	}
	if r := p.Receipt; r != nil {
		out.Receipt = &apiledger.Receipt{
			TopicId: r.TopicId, SequenceNumber: r.SequenceNumber, ConsensusAt: r.ConsensusAt,
		}
	}
	return out
}
