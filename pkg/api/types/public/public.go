// Package public holds types of the consumer interface.
//
// It carries no personal data of farmers.
package public

import "github.com/shopspring/decimal"

type Farmers struct {
	Count     int      `json:"count"`
	Countries []string `json:"countries"`
}

type Stage struct {
	TransactionNumber int64           `json:"transactionNumber"`
	Date              string          `json:"date"`
	Kind              string          `json:"kind"`
	Type              string          `json:"type"`
	Product           string          `json:"product"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit"`

	// names of companies involved.
	Companies []string `json:"companies"`

	// farmers delivering in this stage, aggregated.
	Farmers *Farmers `json:"farmers,omitempty"`

	Notarization string `json:"notarization"`
}

type Claim struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Inherited   bool   `json:"inherited"`
}

type Batch struct {
	Number   int64           `json:"number"`
	Product  string          `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Stages   []Stage         `json:"stages"`
	Claims   []Claim         `json:"claims"`

	// URL of this page, for QR codes. Empty when no base URL is configured.
	URL string `json:"url,omitempty"`
}
