package errors

import (
	"errors"
	"net/http"

	apierr "github.com/fairtrace/fairtrace/pkg/api/types/errors"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/labstack/echo/v4"
)

type ErrorMessageOption func(in *apierr.ErrorMessage) *apierr.ErrorMessage

func WithAdvice(advice string) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		if advice != "" {
			in.Advice = advice
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func WithSee(see string) ErrorMessageOption {
	return func(in *apierr.ErrorMessage) *apierr.ErrorMessage {
		if see != "" {
			in.See = see
		}
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := apierr.ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}

	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusServiceUnavailable,
		"service unavailable temporaly",
		WithAdvice(advice),
		WithError(err),
	)
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found")
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadRequest,
		"bad request",
		WithAdvice(advice),
		WithError(err),
	)
}

func Conflict(message string, options ...ErrorMessageOption) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusConflict,
		message,
		options...,
	)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError,
		"unexpected error",
		WithError(err),
	)
}

func Unauthorized(message string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusUnauthorized,
		message,
		WithError(err),
	)
}

func Forbidden(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusForbidden,
		"forbidden",
		WithAdvice(advice),
		WithError(err),
	)
}

// FromDB translates errors of the database layer to HTTP errors.
func FromDB(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	shortage := new(fdb.ErrShortage)
	switch {
	case errors.As(err, &shortage):
		see := ""
		if shortage.BatchId != "" {
			see = "/api/batches/" + shortage.BatchId + "/"
		}
		return NewErrorMessage(
			http.StatusConflict,
			"insufficient quantity",
			WithAdvice("short by "+shortage.Shortfall().String()+". check quantities of batches."),
			WithSee(see),
			WithError(err),
		)
	case errors.Is(err, fdb.ErrInsufficientQuantity):
		return Conflict("insufficient quantity", WithError(err))
	case errors.Is(err, fdb.ErrInvalidParam):
		return BadRequest(err.Error(), err)
	case errors.Is(err, fdb.ErrForbidden):
		return Forbidden(err.Error(), err)
	case errors.Is(err, fdb.ErrMissing):
		return NewErrorMessage(http.StatusNotFound, "not found", WithError(err))
	case errors.Is(err, fdb.ErrNotConnected):
		return Conflict(
			"nodes are not connected",
			WithAdvice("invite the node into the supply chain, and wait for acceptance."),
			WithError(err),
		)
	case errors.Is(err, fdb.ErrConflict):
		return Conflict("conflict", WithAdvice(err.Error()), WithError(err))
	case errors.Is(err, fdb.ErrInvalidState):
		return Conflict("invalid state", WithAdvice(err.Error()), WithError(err))
	default:
		return InternalServerError(err)
	}
}
