package mock

import (
	"context"
	"io"
	"testing"

	"github.com/fairtrace/fairtrace/cmd/ftctl/rest"
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	apiledger "github.com/fairtrace/fairtrace/pkg/api/types/ledger"
)

type TraceArgs struct {
	BatchId   string
	Direction string
	Depth     int
}

type CommitUploadArgs struct {
	Kind          string
	SupplyChainId string
	Filename      string
	Content       []byte
}

func New(t *testing.T) *mockFairtraceClient {
	return &mockFairtraceClient{t: t}
}

type mockFairtraceClient struct {
	t    *testing.T
	Impl struct {
		Trace         func(ctx context.Context, batchId string, direction string, depth int) (apiledger.Trace, error)
		Origins       func(ctx context.Context, batchId string) (apiledger.Origins, error)
		CommitUpload  func(ctx context.Context, kind string, supplyChainId string, filename string, content io.Reader) (apijobs.Upload, error)
		RequestReport func(ctx context.Context, spec apijobs.ReportSpec) (apijobs.Report, error)
		GetReport     func(ctx context.Context, reportId string) (apijobs.Report, error)
		GetReportFile func(ctx context.Context, reportId string, handler func(io.Reader) error) error
	}
	Calls struct {
		Trace         []TraceArgs
		Origins       []string
		CommitUpload  []CommitUploadArgs
		RequestReport []apijobs.ReportSpec
		GetReport     []string
		GetReportFile []string
	}
}

var _ rest.FairtraceClient = &mockFairtraceClient{}

func (m *mockFairtraceClient) Trace(ctx context.Context, batchId string, direction string, depth int) (apiledger.Trace, error) {
	m.t.Helper()

	m.Calls.Trace = append(m.Calls.Trace, TraceArgs{BatchId: batchId, Direction: direction, Depth: depth})
	if m.Impl.Trace == nil {
		m.t.Fatal("Trace is not ready to be called")
	}
	return m.Impl.Trace(ctx, batchId, direction, depth)
}

func (m *mockFairtraceClient) Origins(ctx context.Context, batchId string) (apiledger.Origins, error) {
	m.t.Helper()

	m.Calls.Origins = append(m.Calls.Origins, batchId)
	if m.Impl.Origins == nil {
		m.t.Fatal("Origins is not ready to be called")
	}
	return m.Impl.Origins(ctx, batchId)
}

// CommitUpload records the content it reads, and passes the rest to Impl.
func (m *mockFairtraceClient) CommitUpload(
	ctx context.Context, kind string, supplyChainId string, filename string, content io.Reader,
) (apijobs.Upload, error) {
	m.t.Helper()

	b, err := io.ReadAll(content)
	if err != nil {
		m.t.Fatal(err)
	}
	m.Calls.CommitUpload = append(m.Calls.CommitUpload, CommitUploadArgs{
		Kind: kind, SupplyChainId: supplyChainId, Filename: filename, Content: b,
	})
	if m.Impl.CommitUpload == nil {
		m.t.Fatal("CommitUpload is not ready to be called")
	}
	return m.Impl.CommitUpload(ctx, kind, supplyChainId, filename, nil)
}

func (m *mockFairtraceClient) RequestReport(ctx context.Context, spec apijobs.ReportSpec) (apijobs.Report, error) {
	m.t.Helper()

	m.Calls.RequestReport = append(m.Calls.RequestReport, spec)
	if m.Impl.RequestReport == nil {
		m.t.Fatal("RequestReport is not ready to be called")
	}
	return m.Impl.RequestReport(ctx, spec)
}

func (m *mockFairtraceClient) GetReport(ctx context.Context, reportId string) (apijobs.Report, error) {
	m.t.Helper()

	m.Calls.GetReport = append(m.Calls.GetReport, reportId)
	if m.Impl.GetReport == nil {
		m.t.Fatal("GetReport is not ready to be called")
	}
	return m.Impl.GetReport(ctx, reportId)
}

func (m *mockFairtraceClient) GetReportFile(ctx context.Context, reportId string, handler func(io.Reader) error) error {
	m.t.Helper()

	m.Calls.GetReportFile = append(m.Calls.GetReportFile, reportId)
	if m.Impl.GetReportFile == nil {
		m.t.Fatal("GetReportFile is not ready to be called")
	}
	return m.Impl.GetReportFile(ctx, reportId, handler)
}
