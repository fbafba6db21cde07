// Package testctx gives contexts bound to the lifetime of a test.
package testctx

import (
	"context"
	"testing"
	"time"
)

// margin left for cleanups between the deadline of contexts and of the test.
const margin = time.Second

// For returns a context cancelled when t finishes.
//
// When the test has a deadline (go test -timeout), the context expires slightly before it,
// so that queries in flight fail with an error rather than the test binary panicking.
func For(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	if tt, ok := t.(interface{ Deadline() (time.Time, bool) }); ok {
		if deadline, ok := tt.Deadline(); ok {
			cancel()
			ctx, cancel = context.WithDeadline(context.Background(), deadline.Add(-margin))
		}
	}
	t.Cleanup(cancel)
	return ctx
}
