// Package tracegraph renders traces of batches in the dot format of Graphviz.
//
// Batches and transactions are nodes. Each edge is labelled with the quantity of the batch
// consumed by the transaction.
package tracegraph

import (
	"fmt"
	"html"
	"io"

	apiledger "github.com/fairtrace/fairtrace/pkg/api/types/ledger"
)

type NodeId string

func batchNode(id string) NodeId       { return NodeId("b" + id) }
func transactionNode(id string) NodeId { return NodeId("t" + id) }

type Edge struct {
	FromId NodeId
	ToId   NodeId
	Label  string
}

func (e Edge) ToDot(w io.Writer) error {
	label := ""
	if e.Label != "" {
		label = fmt.Sprintf(` [label="%s"]`, e.Label)
	}
	_, err := fmt.Fprintf(w, "\t\"%s\" -> \"%s\"%s;\n", e.FromId, e.ToId, label)
	return err
}

type BatchNode struct {
	NodeId NodeId
	Batch  apiledger.Batch
	Root   bool
}

func (b BatchNode) ToDot(w io.Writer) error {
	color := "#1f6f8b"
	if b.Root {
		color = "#c0392b"
	}
	_, err := fmt.Fprintf(
		w,
		`	"%s"[
		shape=none
		color="%s"
		label=<
			<TABLE CELLSPACING="0">
				<TR><TD BGCOLOR="%s"><FONT COLOR="#FFFFFF"><B>Batch</B></FONT></TD><TD>#%d</TD></TR>
				<TR><TD COLSPAN="2">%s %s of %s</TD></TR>
				<TR><TD COLSPAN="2"><FONT POINT-SIZE="8">at %s, %s %s left</FONT></TD></TR>
			</TABLE>
		>
	];
`,
		b.NodeId, color, color, b.Batch.Number,
		html.EscapeString(b.Batch.InitialQuantity.String()), html.EscapeString(b.Batch.Unit),
		html.EscapeString(b.Batch.ProductId),
		html.EscapeString(b.Batch.NodeId), html.EscapeString(b.Batch.CurrentQuantity.String()),
		html.EscapeString(b.Batch.Unit),
	)
	return err
}

type TransactionNode struct {
	NodeId      NodeId
	Transaction apiledger.Transaction
}

func (t TransactionNode) ToDot(w io.Writer) error {
	tx := t.Transaction
	status := html.EscapeString(tx.Status)
	if tx.Status == "rejected" {
		status = fmt.Sprintf(`<FONT COLOR="red"><B>%s</B></FONT>`, status)
	}
	parties := html.EscapeString(tx.SourceNodeId)
	if tx.DestinationNodeId != "" && tx.DestinationNodeId != tx.SourceNodeId {
		parties += " &#8594; " + html.EscapeString(tx.DestinationNodeId)
	}
	_, err := fmt.Fprintf(
		w,
		`	"%s"[
		shape=none
		color=orange
		label=<
			<TABLE CELLSPACING="0">
				<TR><TD BGCOLOR="orange"><FONT COLOR="#FFFFFF"><B>%s</B></FONT></TD><TD>#%d %s</TD><TD>%s</TD></TR>
				<TR><TD COLSPAN="3">%s</TD></TR>
			</TABLE>
		>
	];
`,
		t.NodeId, html.EscapeString(tx.Type), tx.Number, html.EscapeString(tx.Date), status, parties,
	)
	return err
}

type DirectedGraph struct {
	Batches      []BatchNode
	Transactions []TransactionNode
	Edges        []Edge
}

// New makes a graph of the trace.
//
// Batches consumed by a transaction point to the transaction, and the transaction points to
// batches it has produced. Batches or transactions out of the trace are not drawn.
func New(trace apiledger.Trace) *DirectedGraph {
	g := &DirectedGraph{
		Batches:      []BatchNode{},
		Transactions: []TransactionNode{},
		Edges:        []Edge{},
	}

	batches := map[string]struct{}{}
	for _, b := range trace.Batches {
		batches[b.Id] = struct{}{}
		g.Batches = append(g.Batches, BatchNode{NodeId: batchNode(b.Id), Batch: b, Root: b.Id == trace.Root})
	}

	for _, tx := range trace.Transactions {
		g.Transactions = append(g.Transactions, TransactionNode{NodeId: transactionNode(tx.Id), Transaction: tx})
		for _, sb := range tx.SourceBatches {
			if _, ok := batches[sb.BatchId]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{
				FromId: batchNode(sb.BatchId), ToId: transactionNode(tx.Id), Label: sb.Quantity.String(),
			})
		}
		for _, to := range tx.ResultBatches {
			if _, ok := batches[to]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{FromId: transactionNode(tx.Id), ToId: batchNode(to)})
		}
	}
	return g
}

func (g *DirectedGraph) GenerateDot(w io.Writer) error {
	if _, err := io.WriteString(w, "digraph G {\n\tnode [shape=record fontsize=10]\n\tedge [fontsize=10]\n\n"); err != nil {
		return err
	}
	for _, b := range g.Batches {
		if err := b.ToDot(w); err != nil {
			return err
		}
	}
	for _, t := range g.Transactions {
		if err := t.ToDot(w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	for _, e := range g.Edges {
		if err := e.ToDot(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}
