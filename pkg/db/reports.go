package db

import (
	"context"
	"fmt"
	"time"
)

type ReportKind string

const (
	TransactionReport ReportKind = "transactions"
	FarmerReport      ReportKind = "farmers"
	StockReport       ReportKind = "stock"
)

func AsReportKind(s string) (ReportKind, error) {
	switch ReportKind(s) {
	case TransactionReport, FarmerReport, StockReport:
		return ReportKind(s), nil
	default:
		return ReportKind(s), NewErrInvalidParam("kind", fmt.Sprintf("unknown report kind: %s", s))
	}
}

type ReportStatus string

const (
	ReportQueued  ReportStatus = "queued"
	ReportRunning ReportStatus = "running"
	ReportDone    ReportStatus = "done"
	ReportFailed  ReportStatus = "failed"
)

type ReportJob struct {
	Id     string
	NodeId string
	Kind   ReportKind
	Since  *time.Time
	Until  *time.Time
	Status ReportStatus

	// path of the generated file, for done jobs.
	File string

	// reason of failure, for failed jobs.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ReportParam struct {
	NodeId string
	Kind   ReportKind
	Since  *time.Time
	Until  *time.Time
}

func (p ReportParam) Validate() (ReportParam, error) {
	if p.NodeId == "" {
		return p, NewErrInvalidParam("node", "required")
	}
	if _, err := AsReportKind(string(p.Kind)); err != nil {
		return p, err
	}
	if p.Since != nil && p.Until != nil && !p.Since.Before(*p.Until) {
		return p, NewErrInvalidParam("since", "should be before until")
	}
	return p, nil
}

type ReportInterface interface {
	Request(ctx context.Context, param ReportParam) (ReportJob, error)
	Get(ctx context.Context, id string) (ReportJob, error)

	// Pop a queued job and generate it with f.
	//
	// f returns the path of the generated file.
	// When f returns error, the job is marked as failed with the error message.
	//
	// Returns true if a job is popped.
	Pop(ctx context.Context, f func(ReportJob) (string, error)) (bool, error)
}
