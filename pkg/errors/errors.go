// Package errors wraps errors with the location where they are raised.
//
//	wrapped := xe.Wrap(err)
//
// The message of a wrapped error reads like a stack when `<-` is replaced with
// newlines:
//
//	@ github.com/fairtrace/fairtrace/pkg/db/postgres/ledger.(*ledgerPG).RecordExternal "ledger.go" l120 <- ...
//
// Wrapped errors keep the errors.Is / errors.As protocol.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Location is where an error has been wrapped.
type Location struct {
	File     string
	Line     int
	Function string
}

func (l Location) String() string {
	return fmt.Sprintf(`@ %s "%s" l%d`, l.Function, l.File, l.Line)
}

type ErrWithCaller struct {
	at   Location
	note string
	err  error
}

func (e *ErrWithCaller) Location() Location {
	return e.at
}

func (e *ErrWithCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`%s <- %s`, e.at, e.err.Error())
	}
	return fmt.Sprintf(`%s (%s) <- %s`, e.at, e.note, e.err.Error())
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

// New creates a new error with message, marked with the caller location.
func New(text string) error {
	return wrap("", errors.New(text), 1)
}

// Errorf is fmt.Errorf marked with the caller location. %w is supported.
func Errorf(format string, args ...any) error {
	return wrap("", fmt.Errorf(format, args...), 1)
}

// Wrap marks err with the caller location.
//
// Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return wrap("", err, 1)
}

// WrapAsOuter marks err with the location of the caller `depth` frames above.
func WrapAsOuter(err error, depth int) error {
	if err == nil {
		return nil
	}
	return wrap("", err, depth+1)
}

// WrapWithNote marks err with the caller location and a human readable note.
func WrapWithNote(note string, err error) error {
	if err == nil {
		return nil
	}
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	at := Location{File: "?", Line: -1, Function: "(unknown func)"}
	pc, file, line, ok := runtime.Caller(depth + 1)
	if ok {
		at.File = file
		at.Line = line
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		at.Function = fn.Name()
	}

	return &ErrWithCaller{at: at, note: note, err: err}
}
