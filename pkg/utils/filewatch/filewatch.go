// Package filewatch stops servers when their configuration files change.
//
// Configuration files mounted from kubernetes ConfigMaps are replaced by swapping the
// "..data" symlink in the directory, not by writing the file. So directories holding
// the files are watched, and events on the files or on "..data" count as a change.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrChanged is the cause of contexts cancelled by a change of a watched file.
var ErrChanged = errors.New("watched file is changed")

const configMapData = "..data"

// UntilChanged returns a context cancelled when one of files is written, created, removed or renamed.
//
// context.Cause of the context wraps ErrChanged.
// Files should exist when it is called. Changes of their permissions are ignored.
func UntilChanged(ctx context.Context, logger *zap.Logger, files ...string) (context.Context, context.CancelFunc, error) {
	targets := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, nil, xe.Wrap(err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, nil, xe.Wrap(err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, xe.Wrap(err)
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, nil, xe.Wrap(err)
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watching files", zap.Error(err))
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevant(ev, targets) {
					continue
				}
				logger.Info("file is changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				cancel(fmt.Errorf("%w: %s (%s)", ErrChanged, ev.Name, ev.Op))
				return
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}

func relevant(ev fsnotify.Event, targets map[string]struct{}) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Base(ev.Name) == configMapData {
		return true
	}
	_, ok := targets[filepath.Clean(ev.Name)]
	return ok
}
