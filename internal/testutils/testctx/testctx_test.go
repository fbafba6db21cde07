package testctx_test

import (
	"context"
	"testing"

	"github.com/fairtrace/fairtrace/internal/testutils/testctx"
)

func TestFor(t *testing.T) {
	var ctx context.Context
	t.Run("while the test runs, the context is alive", func(t *testing.T) {
		ctx = testctx.For(t)
		if err := ctx.Err(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if deadline, ok := t.Deadline(); ok {
			if got, ok := ctx.Deadline(); !ok || !got.Before(deadline) {
				t.Errorf("deadline: %v (test: %v)", got, deadline)
			}
		}
	})
	if ctx.Err() == nil {
		t.Error("the context is alive after the test")
	}
}
