// Package mocks provides "mock" implementations of database interfaces for testing.
//
// Each mock calls the function set in its Impl, and records arguments in its Calls.
// Calling a method without Impl panics.
package mocks

import (
	"errors"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

func notImplemented() error {
	return errors.New("[MOCK] it should not be called")
}

type MockDatabase struct {
	NodesMock    *MockNodeInterface
	LedgerMock   *MockLedgerInterface
	ClaimsMock   *MockClaimInterface
	UploadsMock  *MockUploadInterface
	ReportsMock  *MockReportInterface
	NotaryMock   *MockNotaryInterface
	GuardianMock *MockGuardianInterface
	OutboxMock   *MockOutboxInterface
	SchemaMock   *MockSchemaInterface
}

func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		NodesMock:    NewMockNodeInterface(),
		LedgerMock:   NewMockLedgerInterface(),
		ClaimsMock:   NewMockClaimInterface(),
		UploadsMock:  NewMockUploadInterface(),
		ReportsMock:  NewMockReportInterface(),
		NotaryMock:   NewMockNotaryInterface(),
		GuardianMock: NewMockGuardianInterface(),
		OutboxMock:   NewMockOutboxInterface(),
		SchemaMock:   NewMockSchemaInterface(),
	}
}

var _ fdb.Database = &MockDatabase{}

func (m *MockDatabase) Nodes() fdb.NodeInterface        { return m.NodesMock }
func (m *MockDatabase) Ledger() fdb.LedgerInterface     { return m.LedgerMock }
func (m *MockDatabase) Claims() fdb.ClaimInterface      { return m.ClaimsMock }
func (m *MockDatabase) Uploads() fdb.UploadInterface    { return m.UploadsMock }
func (m *MockDatabase) Reports() fdb.ReportInterface    { return m.ReportsMock }
func (m *MockDatabase) Notary() fdb.NotaryInterface     { return m.NotaryMock }
func (m *MockDatabase) Guardian() fdb.GuardianInterface { return m.GuardianMock }
func (m *MockDatabase) Outbox() fdb.OutboxInterface     { return m.OutboxMock }
func (m *MockDatabase) Schema() fdb.SchemaInterface     { return m.SchemaMock }
func (m *MockDatabase) Close() error                    { return nil }
