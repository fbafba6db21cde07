package filewatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fairtrace/fairtrace/pkg/utils/filewatch"
	"go.uber.org/zap"
)

func config(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "fairtraced.yaml")
	if err := os.WriteFile(file, []byte("port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, file
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("context is not cancelled")
	}
}

func TestUntilChanged(t *testing.T) {
	t.Run("when the watched file is written, it cancels the context with ErrChanged", func(t *testing.T) {
		_, file := config(t)
		ctx, cancel, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), file)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		if err := os.WriteFile(file, []byte("port: 9090\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		waitDone(t, ctx)
		if cause := context.Cause(ctx); !errors.Is(cause, filewatch.ErrChanged) {
			t.Errorf("unexpected cause: %v", cause)
		}
	})

	t.Run("when the watched file is replaced by rename, it cancels the context", func(t *testing.T) {
		dir, file := config(t)
		ctx, cancel, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), file)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		next := filepath.Join(dir, "next.yaml")
		if err := os.WriteFile(next, []byte("port: 9090\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(next, file); err != nil {
			t.Fatal(err)
		}
		waitDone(t, ctx)
	})

	t.Run("when a configmap swaps ..data, it cancels the context", func(t *testing.T) {
		dir, file := config(t)
		ctx, cancel, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), file)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		if err := os.Mkdir(filepath.Join(dir, "..data"), 0o755); err != nil {
			t.Fatal(err)
		}
		waitDone(t, ctx)
	})

	t.Run("when another file in the directory is written, it keeps the context", func(t *testing.T) {
		dir, file := config(t)
		ctx, cancel, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), file)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(file, 0o600); err != nil {
			t.Fatal(err)
		}
		select {
		case <-ctx.Done():
			t.Errorf("context is cancelled: %v", context.Cause(ctx))
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("when the file does not exist, it returns an error", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), filepath.Join(dir, "missing.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when cancel is called, the context is done without ErrChanged", func(t *testing.T) {
		_, file := config(t)
		ctx, cancel, err := filewatch.UntilChanged(context.Background(), zap.NewNop(), file)
		if err != nil {
			t.Fatal(err)
		}
		cancel()
		waitDone(t, ctx)
		if errors.Is(context.Cause(ctx), filewatch.ErrChanged) {
			t.Error("cause is ErrChanged")
		}
	})
}
