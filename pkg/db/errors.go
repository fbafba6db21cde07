package db

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// requested record is not found.
	ErrMissing = errors.New("missing")

	// requested record is found more than expected.
	ErrTooMuch = errors.New("too much")

	// the record conflicts with existing ones (unique constraints, double attachment, ...).
	ErrConflict = errors.New("conflict")

	// the parameters are malformed.
	ErrInvalidParam = errors.New("invalid parameter")

	// quantity is not positive, or does not balance.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity", ErrInvalidParam)

	// batches do not hold enough quantity.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// there are no active connection between nodes.
	ErrNotConnected = errors.New("nodes are not connected")

	// the record is not in the state the operation requires.
	ErrInvalidState = errors.New("invalid state")

	// the actor is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// NewErrInvalidParam tells which parameter is wrong and why.
func NewErrInvalidParam(path string, reason string) error {
	return fmt.Errorf("%w (%s): %s", ErrInvalidParam, path, reason)
}

// NewErrForbidden tells which node cannot perform what.
func NewErrForbidden(nodeId string, action string) error {
	return fmt.Errorf("%w: node %s cannot %s", ErrForbidden, nodeId, action)
}

// NewErrInvalidState tells the current state of the record.
func NewErrInvalidState(what string, state string, reason string) error {
	return fmt.Errorf("%w: %s is %s: %s", ErrInvalidState, what, state, reason)
}

// ErrShortage is an ErrInsufficientQuantity with details.
type ErrShortage struct {
	// BatchId is set when a specific batch is short. Empty when the node as a whole is short.
	BatchId string
	Want    decimal.Decimal
	Have    decimal.Decimal
}

func (e *ErrShortage) Error() string {
	if e.BatchId == "" {
		return fmt.Sprintf(
			"insufficient quantity: want %s, but only %s is available",
			e.Want, e.Have,
		)
	}
	return fmt.Sprintf(
		"insufficient quantity in batch %s: want %s, but it has %s",
		e.BatchId, e.Want, e.Have,
	)
}

func (e *ErrShortage) Unwrap() error {
	return ErrInsufficientQuantity
}

// Shortfall is how much quantity is lacking.
func (e *ErrShortage) Shortfall() decimal.Decimal {
	return e.Want.Sub(e.Have)
}
