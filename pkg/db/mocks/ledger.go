package mocks

import (
	"context"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

type MockLedgerInterface struct {
	Impl struct {
		RecordExternal   func(ctx context.Context, param fdb.ExternalParam) (fdb.Transaction, error)
		RejectExternal   func(ctx context.Context, param fdb.RejectParam) (fdb.Transaction, error)
		RecordInternal   func(ctx context.Context, param fdb.InternalParam) (fdb.Transaction, error)
		GetTransactions  func(ctx context.Context, ids []string) (map[string]fdb.Transaction, error)
		FindTransactions func(ctx context.Context, query fdb.TransactionQuery) ([]string, error)
		GetBatches       func(ctx context.Context, ids []string) (map[string]fdb.Batch, error)
		FindBatches      func(ctx context.Context, query fdb.BatchQuery) ([]fdb.Batch, error)
		Lineage          func(ctx context.Context, batchId string, direction fdb.Direction, depth int) (fdb.Lineage, error)
		Balances         func(ctx context.Context, nodeId string) ([]fdb.BatchBalance, error)
	}

	Calls struct {
		RecordExternal   CallLog[fdb.ExternalParam]
		RejectExternal   CallLog[fdb.RejectParam]
		RecordInternal   CallLog[fdb.InternalParam]
		GetTransactions  CallLog[[]string]
		FindTransactions CallLog[fdb.TransactionQuery]
		GetBatches       CallLog[[]string]
		FindBatches      CallLog[fdb.BatchQuery]
		Lineage          CallLog[struct {
			BatchId   string
			Direction fdb.Direction
			Depth     int
		}]
		Balances CallLog[string]
	}
}

func NewMockLedgerInterface() *MockLedgerInterface {
	return &MockLedgerInterface{}
}

var _ fdb.LedgerInterface = &MockLedgerInterface{}

func (m *MockLedgerInterface) RecordExternal(ctx context.Context, param fdb.ExternalParam) (fdb.Transaction, error) {
	m.Calls.RecordExternal = append(m.Calls.RecordExternal, param)
	if m.Impl.RecordExternal == nil {
		panic(notImplemented())
	}
	return m.Impl.RecordExternal(ctx, param)
}

func (m *MockLedgerInterface) RejectExternal(ctx context.Context, param fdb.RejectParam) (fdb.Transaction, error) {
	m.Calls.RejectExternal = append(m.Calls.RejectExternal, param)
	if m.Impl.RejectExternal == nil {
		panic(notImplemented())
	}
	return m.Impl.RejectExternal(ctx, param)
}

func (m *MockLedgerInterface) RecordInternal(ctx context.Context, param fdb.InternalParam) (fdb.Transaction, error) {
	m.Calls.RecordInternal = append(m.Calls.RecordInternal, param)
	if m.Impl.RecordInternal == nil {
		panic(notImplemented())
	}
	return m.Impl.RecordInternal(ctx, param)
}

func (m *MockLedgerInterface) GetTransactions(ctx context.Context, ids []string) (map[string]fdb.Transaction, error) {
	m.Calls.GetTransactions = append(m.Calls.GetTransactions, ids)
	if m.Impl.GetTransactions == nil {
		panic(notImplemented())
	}
	return m.Impl.GetTransactions(ctx, ids)
}

func (m *MockLedgerInterface) FindTransactions(ctx context.Context, query fdb.TransactionQuery) ([]string, error) {
	m.Calls.FindTransactions = append(m.Calls.FindTransactions, query)
	if m.Impl.FindTransactions == nil {
		panic(notImplemented())
	}
	return m.Impl.FindTransactions(ctx, query)
}

func (m *MockLedgerInterface) GetBatches(ctx context.Context, ids []string) (map[string]fdb.Batch, error) {
	m.Calls.GetBatches = append(m.Calls.GetBatches, ids)
	if m.Impl.GetBatches == nil {
		panic(notImplemented())
	}
	return m.Impl.GetBatches(ctx, ids)
}

func (m *MockLedgerInterface) FindBatches(ctx context.Context, query fdb.BatchQuery) ([]fdb.Batch, error) {
	m.Calls.FindBatches = append(m.Calls.FindBatches, query)
	if m.Impl.FindBatches == nil {
		panic(notImplemented())
	}
	return m.Impl.FindBatches(ctx, query)
}

func (m *MockLedgerInterface) Lineage(ctx context.Context, batchId string, direction fdb.Direction, depth int) (fdb.Lineage, error) {
	m.Calls.Lineage = append(m.Calls.Lineage, struct {
		BatchId   string
		Direction fdb.Direction
		Depth     int
	}{BatchId: batchId, Direction: direction, Depth: depth})
	if m.Impl.Lineage == nil {
		panic(notImplemented())
	}
	return m.Impl.Lineage(ctx, batchId, direction, depth)
}

func (m *MockLedgerInterface) Balances(ctx context.Context, nodeId string) ([]fdb.BatchBalance, error) {
	m.Calls.Balances = append(m.Calls.Balances, nodeId)
	if m.Impl.Balances == nil {
		panic(notImplemented())
	}
	return m.Impl.Balances(ctx, nodeId)
}
