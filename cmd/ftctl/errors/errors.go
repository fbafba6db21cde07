// Package errors holds errors shown to operators.
//
// A CUIError has a short summary, and tells its cause only when asked verbosely.
package errors

import (
	"fmt"
	"strings"
)

type Verbose interface {
	Verbose() string
}

type CUIError interface {
	error
	Verbose
}

type cuierror struct {
	summary string
	detail  func(summary string) (string, error)
	base    error
}

func (ce *cuierror) Unwrap() error {
	return ce.base
}

func (ce *cuierror) Error() string {
	if ce.detail == nil {
		return ce.summary
	}
	message, err := ce.detail(ce.summary)
	if err != nil {
		return fmt.Sprintf("%s\n(cannot build detailed message: %s)", ce.summary, err)
	}
	return message
}

func (ce *cuierror) Verbose() string {
	message := []string{ce.Error()}
	switch base := ce.base.(type) {
	case nil:
	case Verbose:
		message = append(message, "caused by: "+base.Verbose())
	default:
		message = append(message, "caused by: "+base.Error())
	}
	return strings.Join(message, "\n")
}

type Option func(*cuierror) *cuierror

func New(summary string, options ...Option) CUIError {
	err := &cuierror{summary: summary}
	for _, o := range options {
		err = o(err)
	}
	return err
}

// WithDetail sets a printer of the message following the summary.
func WithDetail(printer func(summary string) (string, error)) Option {
	return func(ce *cuierror) *cuierror {
		ce.detail = printer
		return ce
	}
}

func WithCause(err error) Option {
	return func(ce *cuierror) *cuierror {
		ce.base = err
		return ce
	}
}
