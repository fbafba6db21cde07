package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Batch struct {
	Id                  string          `json:"id"`
	Number              int64           `json:"number"`
	ProductId           string          `json:"productId"`
	NodeId              string          `json:"nodeId"`
	InitialQuantity     decimal.Decimal `json:"initialQuantity"`
	CurrentQuantity     decimal.Decimal `json:"currentQuantity"`
	Unit                string          `json:"unit"`
	SourceTransactionId string          `json:"sourceTransactionId"`
	CreatedAt           time.Time       `json:"createdAt"`
}

type SourceBatch struct {
	BatchId  string          `json:"batchId"`
	Quantity decimal.Decimal `json:"quantity"`
}

type Transaction struct {
	Id                string          `json:"id"`
	Number            int64           `json:"number"`
	Kind              string          `json:"kind"`
	Type              string          `json:"type"`
	SourceNodeId      string          `json:"sourceNodeId,omitempty"`
	DestinationNodeId string          `json:"destinationNodeId,omitempty"`
	ProductId         string          `json:"productId,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit,omitempty"`
	Loss              decimal.Decimal `json:"loss"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency,omitempty"`
	Date              string          `json:"date"`
	InvoiceNumber     string          `json:"invoiceNumber,omitempty"`
	Status            string          `json:"status"`
	RejectionReason   string          `json:"rejectionReason,omitempty"`
	Reverses          string          `json:"reverses,omitempty"`
	SourceBatches     []SourceBatch   `json:"sourceBatches"`
	ResultBatches     []string        `json:"resultBatches"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ExternalSpec is a request body to record a transaction with another node.
//
// Date is in "2006-01-02".
type ExternalSpec struct {
	Type              string          `json:"type"`
	SourceNodeId      string          `json:"sourceNodeId"`
	DestinationNodeId string          `json:"destinationNodeId"`
	ProductId         string          `json:"productId"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency,omitempty"`
	Date              string          `json:"date"`
	InvoiceNumber     string          `json:"invoiceNumber,omitempty"`
	Batches           []SourceBatch   `json:"batches,omitempty"`
}

type Output struct {
	ProductId string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type InternalSpec struct {
	Type    string        `json:"type"`
	Date    string        `json:"date"`
	Sources []SourceBatch `json:"sources"`
	Outputs []Output      `json:"outputs,omitempty"`
}

type RejectSpec struct {
	Reason string `json:"reason"`
}

type Edge struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	TransactionId string          `json:"transactionId"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type Trace struct {
	Root         string        `json:"root"`
	Direction    string        `json:"direction"`
	Batches      []Batch       `json:"batches"`
	Transactions []Transaction `json:"transactions"`
	Edges        []Edge        `json:"edges"`
}

type Origin struct {
	TransactionId string          `json:"transactionId"`
	SourceNodeId  string          `json:"sourceNodeId"`
	Share         decimal.Decimal `json:"share"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type Origins struct {
	BatchId string   `json:"batchId"`
	Origins []Origin `json:"origins"`
}

type Finding struct {
	Batch    Batch           `json:"batch"`
	Expected decimal.Decimal `json:"expected"`
	Problem  string          `json:"problem"`
}

type Audit struct {
	NodeId   string    `json:"nodeId"`
	Batches  int       `json:"batches"`
	Findings []Finding `json:"findings"`
}

type Receipt struct {
	TopicId        string    `json:"topicId"`
	SequenceNumber int64     `json:"sequenceNumber"`
	ConsensusAt    time.Time `json:"consensusAt"`
}

type Proof struct {
	TransactionId string   `json:"transactionId"`
	Hash          string   `json:"hash"`
	NotarizedHash string   `json:"notarizedHash"`
	Status        string   `json:"status"`
	Receipt       *Receipt `json:"receipt,omitempty"`
	Verified      bool     `json:"verified"`
}
