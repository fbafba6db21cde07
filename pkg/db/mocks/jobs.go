package mocks

import (
	"context"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

type MockUploadInterface struct {
	Impl struct {
		Commit func(ctx context.Context, param fdb.UploadParam) (fdb.Upload, error)
		Get    func(ctx context.Context, id string) (fdb.Upload, error)
	}
	Calls struct {
		Commit CallLog[fdb.UploadParam]
		Get    CallLog[string]
	}
}

func NewMockUploadInterface() *MockUploadInterface {
	return &MockUploadInterface{}
}

var _ fdb.UploadInterface = &MockUploadInterface{}

func (m *MockUploadInterface) Commit(ctx context.Context, param fdb.UploadParam) (fdb.Upload, error) {
	m.Calls.Commit = append(m.Calls.Commit, param)
	if m.Impl.Commit == nil {
		panic(notImplemented())
	}
	return m.Impl.Commit(ctx, param)
}

func (m *MockUploadInterface) Get(ctx context.Context, id string) (fdb.Upload, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, id)
}

type MockReportInterface struct {
	Impl struct {
		Request func(ctx context.Context, param fdb.ReportParam) (fdb.ReportJob, error)
		Get     func(ctx context.Context, id string) (fdb.ReportJob, error)
		Pop     func(ctx context.Context, f func(fdb.ReportJob) (string, error)) (bool, error)
	}
	Calls struct {
		Request CallLog[fdb.ReportParam]
		Get     CallLog[string]
		Pop     CallLog[struct{}]
	}
}

func NewMockReportInterface() *MockReportInterface {
	return &MockReportInterface{}
}

var _ fdb.ReportInterface = &MockReportInterface{}

func (m *MockReportInterface) Request(ctx context.Context, param fdb.ReportParam) (fdb.ReportJob, error) {
	m.Calls.Request = append(m.Calls.Request, param)
	if m.Impl.Request == nil {
		panic(notImplemented())
	}
	return m.Impl.Request(ctx, param)
}

func (m *MockReportInterface) Get(ctx context.Context, id string) (fdb.ReportJob, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, id)
}

func (m *MockReportInterface) Pop(ctx context.Context, f func(fdb.ReportJob) (string, error)) (bool, error) {
	m.Calls.Pop = append(m.Calls.Pop, struct{}{})
	if m.Impl.Pop == nil {
		panic(notImplemented())
	}
	return m.Impl.Pop(ctx, f)
}

type MockNotaryInterface struct {
	Impl struct {
		Get func(ctx context.Context, transactionIds []string) (map[string]fdb.Notarization, error)
		Pop func(ctx context.Context, now time.Time, f func(fdb.Notarization) (*fdb.Receipt, fdb.Attempt)) (bool, error)
	}
	Calls struct {
		Get CallLog[[]string]
		Pop CallLog[time.Time]
	}
}

func NewMockNotaryInterface() *MockNotaryInterface {
	return &MockNotaryInterface{}
}

var _ fdb.NotaryInterface = &MockNotaryInterface{}

func (m *MockNotaryInterface) Get(ctx context.Context, transactionIds []string) (map[string]fdb.Notarization, error) {
	m.Calls.Get = append(m.Calls.Get, transactionIds)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, transactionIds)
}

func (m *MockNotaryInterface) Pop(ctx context.Context, now time.Time, f func(fdb.Notarization) (*fdb.Receipt, fdb.Attempt)) (bool, error) {
	m.Calls.Pop = append(m.Calls.Pop, now)
	if m.Impl.Pop == nil {
		panic(notImplemented())
	}
	return m.Impl.Pop(ctx, now, f)
}

type MockGuardianInterface struct {
	Impl struct {
		Get func(ctx context.Context, attachedClaimId string) ([]fdb.Submission, error)
		Pop func(ctx context.Context, now time.Time, f func(fdb.Submission) fdb.SubmissionUpdate) (bool, error)
	}
	Calls struct {
		Get CallLog[string]
		Pop CallLog[time.Time]
	}
}

func NewMockGuardianInterface() *MockGuardianInterface {
	return &MockGuardianInterface{}
}

var _ fdb.GuardianInterface = &MockGuardianInterface{}

func (m *MockGuardianInterface) Get(ctx context.Context, attachedClaimId string) ([]fdb.Submission, error) {
	m.Calls.Get = append(m.Calls.Get, attachedClaimId)
	if m.Impl.Get == nil {
		panic(notImplemented())
	}
	return m.Impl.Get(ctx, attachedClaimId)
}

func (m *MockGuardianInterface) Pop(ctx context.Context, now time.Time, f func(fdb.Submission) fdb.SubmissionUpdate) (bool, error) {
	m.Calls.Pop = append(m.Calls.Pop, now)
	if m.Impl.Pop == nil {
		panic(notImplemented())
	}
	return m.Impl.Pop(ctx, now, f)
}

type MockOutboxInterface struct {
	Impl struct {
		Pop func(ctx context.Context, limit int, f func([]fdb.OutboxMessage) ([]string, error)) (int, error)
	}
	Calls struct {
		Pop CallLog[int]
	}
}

func NewMockOutboxInterface() *MockOutboxInterface {
	return &MockOutboxInterface{}
}

var _ fdb.OutboxInterface = &MockOutboxInterface{}

func (m *MockOutboxInterface) Pop(ctx context.Context, limit int, f func([]fdb.OutboxMessage) ([]string, error)) (int, error) {
	m.Calls.Pop = append(m.Calls.Pop, limit)
	if m.Impl.Pop == nil {
		panic(notImplemented())
	}
	return m.Impl.Pop(ctx, limit, f)
}

type MockSchemaInterface struct {
	Impl struct {
		Version func(ctx context.Context) (int, error)
		Upgrade func(ctx context.Context) error
		Context func(ctx context.Context) (context.Context, context.CancelFunc)
	}
}

func NewMockSchemaInterface() *MockSchemaInterface {
	return &MockSchemaInterface{}
}

var _ fdb.SchemaInterface = &MockSchemaInterface{}

func (m *MockSchemaInterface) Version(ctx context.Context) (int, error) {
	if m.Impl.Version == nil {
		panic(notImplemented())
	}
	return m.Impl.Version(ctx)
}

func (m *MockSchemaInterface) Upgrade(ctx context.Context) error {
	if m.Impl.Upgrade == nil {
		panic(notImplemented())
	}
	return m.Impl.Upgrade(ctx)
}

// Context returns a cancellable context derived from ctx, when Impl is not set.
func (m *MockSchemaInterface) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.Impl.Context == nil {
		return context.WithCancel(ctx)
	}
	return m.Impl.Context(ctx)
}
