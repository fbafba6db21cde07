// Package report generates spreadsheet exports requested as report jobs.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Data is what a report is made from.
type Data struct {
	Job fdb.ReportJob

	// Transactions of the node in the period, newest first.
	Transactions []fdb.Transaction

	// Farmers supplying the node, ordered by name.
	Farmers []fdb.Node

	// Batches of the node in stock.
	Batches []fdb.Batch

	// Nodes and products referred by transactions and batches.
	Nodes    map[string]fdb.Node
	Products map[string]fdb.Product
}

func (d Data) nodeName(id string) string {
	if n, ok := d.Nodes[id]; ok {
		return n.Name
	}
	return id
}

func (d Data) productName(id string) string {
	if p, ok := d.Products[id]; ok {
		return p.Name
	}
	return id
}

// Load reads data for the job.
func Load(ctx context.Context, dbase fdb.Database, job fdb.ReportJob) (Data, error) {
	data := Data{
		Job:          job,
		Transactions: []fdb.Transaction{},
		Farmers:      []fdb.Node{},
		Batches:      []fdb.Batch{},
		Nodes:        map[string]fdb.Node{},
		Products:     map[string]fdb.Product{},
	}

	products, err := dbase.Nodes().Products(ctx, "")
	if err != nil {
		return data, xe.Wrap(err)
	}
	for _, p := range products {
		data.Products[p.Id] = p
	}

	switch job.Kind {
	case fdb.TransactionReport, fdb.FarmerReport:
		txs, err := transactions(ctx, dbase, job)
		if err != nil {
			return data, err
		}
		data.Transactions = txs
	case fdb.StockReport:
		batches, err := dbase.Ledger().FindBatches(ctx, fdb.BatchQuery{NodeId: job.NodeId, InStock: true})
		if err != nil {
			return data, xe.Wrap(err)
		}
		data.Batches = batches
	default:
		return data, fdb.NewErrInvalidParam("kind", fmt.Sprintf("unknown report kind: %s", job.Kind))
	}

	nodeIds := map[string]struct{}{job.NodeId: {}}
	for _, tx := range data.Transactions {
		nodeIds[tx.SourceNodeId] = struct{}{}
		nodeIds[tx.DestinationNodeId] = struct{}{}
	}

	if job.Kind == fdb.FarmerReport {
		farmerIds, err := suppliers(ctx, dbase, job.NodeId)
		if err != nil {
			return data, err
		}
		for _, id := range farmerIds {
			nodeIds[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(nodeIds))
	for id := range nodeIds {
		if id != "" {
			ids = append(ids, id)
		}
	}
	nodes, err := dbase.Nodes().Get(ctx, ids)
	if err != nil {
		return data, xe.Wrap(err)
	}
	data.Nodes = nodes

	if job.Kind == fdb.FarmerReport {
		for _, n := range nodes {
			if n.Type == fdb.Farmer {
				data.Farmers = append(data.Farmers, n)
			}
		}
		sort.Slice(data.Farmers, func(i, j int) bool {
			a, b := data.Farmers[i], data.Farmers[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.Id < b.Id
		})
	}
	return data, nil
}

func transactions(ctx context.Context, dbase fdb.Database, job fdb.ReportJob) ([]fdb.Transaction, error) {
	ids, err := dbase.Ledger().FindTransactions(ctx, fdb.TransactionQuery{
		NodeId: job.NodeId, Since: job.Since, Until: job.Until,
	})
	if err != nil {
		return nil, xe.Wrap(err)
	}
	found, err := dbase.Ledger().GetTransactions(ctx, ids)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	txs := make([]fdb.Transaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := found[id]; ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// suppliers of the node over all supply chains.
func suppliers(ctx context.Context, dbase fdb.Database, nodeId string) ([]string, error) {
	scs, err := dbase.Nodes().SupplyChains(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	ids := []string{}
	for _, sc := range scs {
		conns, err := dbase.Nodes().Neighbors(ctx, sc.Id, []string{nodeId}, fdb.Upstream)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		for _, c := range conns {
			ids = append(ids, c.SupplierId)
		}
	}
	return ids, nil
}

// Write renders the report of data as a xlsx file.
func Write(w io.Writer, data Data) error {
	var title string
	var lines [][]any
	switch data.Job.Kind {
	case fdb.TransactionReport:
		title, lines = "Transactions", transactionLines(data)
	case fdb.FarmerReport:
		title, lines = "Farmers", farmerLines(data)
	case fdb.StockReport:
		title, lines = "Stock", stockLines(data)
	default:
		return fdb.NewErrInvalidParam("kind", fmt.Sprintf("unknown report kind: %s", data.Job.Kind))
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", title); err != nil {
		return xe.Wrap(err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return xe.Wrap(err)
	}

	sw, err := f.NewStreamWriter(title)
	if err != nil {
		return xe.Wrap(err)
	}
	for nth, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, nth+1)
		if err != nil {
			return xe.Wrap(err)
		}
		var opts []excelize.RowOpts
		if nth == 0 {
			opts = append(opts, excelize.RowOpts{StyleID: bold})
		}
		if err := sw.SetRow(cell, line, opts...); err != nil {
			return xe.Wrap(err)
		}
	}
	if err := sw.Flush(); err != nil {
		return xe.Wrap(err)
	}
	return xe.Wrap(f.Write(w))
}

func date(t time.Time) string {
	return t.Format(time.DateOnly)
}

func transactionLines(data Data) [][]any {
	lines := [][]any{{
		"number", "date", "type", "counterparty", "product",
		"quantity", "unit", "price", "currency", "status",
	}}
	for _, tx := range data.Transactions {
		counterparty := ""
		switch data.Job.NodeId {
		case tx.SourceNodeId:
			counterparty = data.nodeName(tx.DestinationNodeId)
		case tx.DestinationNodeId:
			counterparty = data.nodeName(tx.SourceNodeId)
		}
		lines = append(lines, []any{
			tx.Number, date(tx.Date), tx.Type, counterparty, data.productName(tx.ProductId),
			tx.Quantity.String(), tx.Unit, tx.Price.String(), tx.Currency, string(tx.Status),
		})
	}
	return lines
}

func farmerLines(data Data) [][]any {
	delivered := map[string]decimal.Decimal{}
	units := map[string]map[string]struct{}{}
	for _, tx := range data.Transactions {
		if tx.Kind != fdb.External || tx.Type != string(fdb.Incoming) ||
			tx.Status == fdb.TransactionRejected || tx.DestinationNodeId != data.Job.NodeId {
			continue
		}
		delivered[tx.SourceNodeId] = delivered[tx.SourceNodeId].Add(tx.Quantity)
		if units[tx.SourceNodeId] == nil {
			units[tx.SourceNodeId] = map[string]struct{}{}
		}
		units[tx.SourceNodeId][tx.Unit] = struct{}{}
	}

	lines := [][]any{{"id", "name", "country", "province", "phone", "delivered", "unit"}}
	for _, f := range data.Farmers {
		us := []string{}
		for u := range units[f.Id] {
			us = append(us, u)
		}
		sort.Strings(us)
		lines = append(lines, []any{
			f.Id, f.Name, f.Country, f.Province, f.Phone,
			delivered[f.Id].String(), strings.Join(us, "/"),
		})
	}
	return lines
}

func stockLines(data Data) [][]any {
	lines := [][]any{{"batch", "product", "current", "initial", "unit", "created"}}
	for _, b := range data.Batches {
		lines = append(lines, []any{
			b.Number, data.productName(b.ProductId),
			b.CurrentQuantity.String(), b.InitialQuantity.String(), b.Unit, date(b.CreatedAt),
		})
	}
	return lines
}

// Generator makes report files in a directory.
type Generator struct {
	dbase fdb.Database
	dir   string
}

func NewGenerator(dbase fdb.Database, dir string) *Generator {
	return &Generator{dbase: dbase, dir: dir}
}

// Generate writes the report of the job to "<dir>/<job id>.xlsx", and returns the path.
func (g *Generator) Generate(ctx context.Context, job fdb.ReportJob) (string, error) {
	data, err := Load(ctx, g.dbase, job)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.dir, os.FileMode(0o755)); err != nil {
		return "", xe.Wrap(err)
	}
	path := filepath.Join(g.dir, job.Id+".xlsx")
	tmp, err := os.CreateTemp(g.dir, job.Id+".*.tmp")
	if err != nil {
		return "", xe.Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", xe.Wrap(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", xe.Wrap(err)
	}
	return path, nil
}
