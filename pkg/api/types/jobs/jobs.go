// Package jobs holds types of uploads and reports.
package jobs

import "time"

type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

type Validation struct {
	Kind   string     `json:"kind"`
	Rows   int        `json:"rows"`
	Errors []RowError `json:"errors"`
}

type Upload struct {
	Id             string    `json:"id"`
	NodeId         string    `json:"nodeId"`
	SupplyChainId  string    `json:"supplyChainId"`
	Kind           string    `json:"kind"`
	Filename       string    `json:"filename"`
	Status         string    `json:"status"`
	RowCount       int       `json:"rowCount"`
	FarmerIds      []string  `json:"farmerIds"`
	TransactionIds []string  `json:"transactionIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UploadFailure is the response body when an upload has row errors.
type UploadFailure struct {
	Reason     string     `json:"reason"`
	Validation Validation `json:"validation"`
}

type ReportSpec struct {
	Kind  string     `json:"kind"`
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

type Report struct {
	Id        string     `json:"id"`
	NodeId    string     `json:"nodeId"`
	Kind      string     `json:"kind"`
	Since     *time.Time `json:"since,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
