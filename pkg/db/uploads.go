package db

import (
	"context"
	"fmt"
	"time"
)

type UploadKind string

const (
	FarmerUpload      UploadKind = "farmers"
	TransactionUpload UploadKind = "transactions"
)

func AsUploadKind(s string) (UploadKind, error) {
	switch UploadKind(s) {
	case FarmerUpload, TransactionUpload:
		return UploadKind(s), nil
	default:
		return UploadKind(s), NewErrInvalidParam("kind", fmt.Sprintf("unknown upload kind: %s", s))
	}
}

type UploadStatus string

const (
	UploadCommitted UploadStatus = "committed"
)

// UploadRow is a validated row of a spreadsheet.
type UploadRow struct {
	// row number in the sheet (1-origin, header is row 1).
	Row int

	// FarmerId refers an existing farmer. When empty, Farmer is created.
	FarmerId string
	Farmer   *NodeParam

	// Transaction is recorded as incoming from the farmer to the uploader.
	// Source, destination and actor are filled on commit.
	Transaction *ExternalParam
}

type UploadParam struct {
	Actor         string
	SupplyChainId string
	Kind          UploadKind
	Filename      string
	Rows          []UploadRow
}

type Upload struct {
	Id             string
	NodeId         string
	SupplyChainId  string
	Kind           UploadKind
	Filename       string
	Status         UploadStatus
	RowCount       int
	FarmerIds      []string
	TransactionIds []string
	CreatedAt      time.Time
}

type UploadInterface interface {
	// Commit creates farmers and transactions of the rows, all or nothing.
	Commit(ctx context.Context, param UploadParam) (Upload, error)

	Get(ctx context.Context, id string) (Upload, error)
}
