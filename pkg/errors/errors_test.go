package errors_test

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	xe "github.com/fairtrace/fairtrace/pkg/errors"
)

type ledgerErr struct{}

func (ledgerErr) Error() string {
	return "error type for test"
}

func raise(message string) error {
	return xe.New(message)
}

func TestNew(t *testing.T) {
	t.Run("it knows location where it is created", func(t *testing.T) {
		testee := raise("test error")
		message := testee.Error()

		_, thisFile, _, _ := runtime.Caller(0)

		if !strings.Contains(message, "raise") {
			t.Errorf("it does not know function name: %s", message)
		}
		if !strings.Contains(message, thisFile) {
			t.Errorf("it does not know file (%s): %s", thisFile, message)
		}

		withCaller := new(xe.ErrWithCaller)
		if !errors.As(testee, &withCaller) {
			t.Fatalf("it is not ErrWithCaller: %T", testee)
		}
		if withCaller.Location().File != thisFile {
			t.Errorf("location file: %s, expected %s", withCaller.Location().File, thisFile)
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("it supports errors protocol", func(t *testing.T) {
		root := ledgerErr{}

		err := xe.Wrap(fmt.Errorf("%w", fmt.Errorf("%w", root)))

		if !errors.Is(err, root) {
			t.Error("it does not support unwrapping.")
		}
	})

	t.Run("when nil is passed, it returns nil", func(t *testing.T) {
		if err := xe.Wrap(nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := xe.WrapWithNote("note", nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when a note is given, the message contains it", func(t *testing.T) {
		err := xe.WrapWithNote("while allocating batches", ledgerErr{})
		if !strings.Contains(err.Error(), "(while allocating batches)") {
			t.Errorf("note is missing: %s", err)
		}
		if !strings.HasSuffix(err.Error(), "<- error type for test") {
			t.Errorf("cause is missing: %s", err)
		}
	})
}

func TestErrorf(t *testing.T) {
	t.Run("it wraps with %w and keeps location", func(t *testing.T) {
		root := ledgerErr{}
		err := xe.Errorf("batch %s: %w", "b-1", root)

		if !errors.Is(err, root) {
			t.Error("it does not support unwrapping.")
		}
		if !strings.Contains(err.Error(), "batch b-1: error type for test") {
			t.Errorf("unexpected message: %s", err)
		}
	})
}
