// Package schema applies versioned SQL files to the database.
//
// A schema repository is a directory with sub directories named by version numbers:
//
//	repository/
//	  1/
//	    0001_init.sql
//	  2/
//	    0001_add_column.sql
//
// Files in a version are applied in lexical order of their paths.
package schema

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fsnotify/fsnotify"
)

type pgSchema struct {
	pool       kpool.Pool
	repository string
}

// New creates a schema of the repository directory.
func New(pool kpool.Pool, repository string) *pgSchema {
	return &pgSchema{pool: pool, repository: repository}
}

type version struct {
	Version int
	Root    string
}

func (v version) Apply(ctx context.Context, conn kpool.Queryer) error {
	return filepath.WalkDir(v.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		query, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(query)); err != nil {
			return xe.WrapWithNote(path, err)
		}
		return nil
	})
}

func currentVersion(ctx context.Context, conn kpool.Queryer) (int, error) {
	// querying a missing table aborts the transaction. check it first.
	var exists bool
	if err := conn.QueryRow(
		ctx, `select to_regclass('"schema_version"') is not null`,
	).Scan(&exists); err != nil {
		return -1, err
	}
	if !exists {
		return 0, nil
	}

	var v int
	if err := conn.QueryRow(
		ctx, `select coalesce(max("version"), 0) from "schema_version"`,
	).Scan(&v); err != nil {
		return -1, err
	}
	return v, nil
}

func (s *pgSchema) Version(ctx context.Context) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return -1, err
	}
	defer conn.Release()
	return currentVersion(ctx, conn)
}

func (s *pgSchema) Upgrade(ctx context.Context) error {
	versions, err := s.versions()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// serialize upgraders
	if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock(hashtext('fairtrace.schema'))`); err != nil {
		return err
	}

	current, err := currentVersion(ctx, tx)
	if err != nil {
		return err
	}

	for _, v := range versions {
		if v.Version <= current {
			continue
		}
		if err := v.Apply(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `delete from "schema_version"`); err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx, `insert into "schema_version" ("version") values ($1)`, v.Version,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Context is cancelled when a version newer than the database appears in the repository.
func (s *pgSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return cctx, func() {}
	}
	if err := w.Add(s.repository); err != nil {
		w.Close()
		cancel(err)
		return cctx, func() {}
	}

	check := func() {
		vs, err := s.versions()
		if err != nil {
			cancel(fmt.Errorf("failed to read schema repository: %w", err))
			return
		}
		current, err := s.Version(ctx)
		if err != nil {
			cancel(fmt.Errorf("failed to get current schema version: %w", err))
			return
		}
		if len(vs) != 0 && current < vs[len(vs)-1].Version {
			cancel(fmt.Errorf(
				"schema is outdated: %d (in db) < %d (in repository)",
				current, vs[len(vs)-1].Version,
			))
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if filepath.Clean(s.repository) != filepath.Dir(ev.Name) {
					continue
				}
				check()
			}
		}
	}()

	check()
	return cctx, func() { cancel(nil) }
}

// versions in the repository, sorted by version number.
func (s *pgSchema) versions() ([]version, error) {
	dir, err := os.ReadDir(s.repository)
	if err != nil {
		return nil, err
	}

	vs := make([]version, 0, len(dir))
	for _, entry := range dir {
		if !entry.IsDir() {
			continue
		}
		v, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		vs = append(vs, version{Version: v, Root: filepath.Join(s.repository, entry.Name())})
	}
	slices.SortFunc(vs, func(a, b version) int { return cmp.Compare(a.Version, b.Version) })
	return vs, nil
}

func Null() *nullSchema {
	return &nullSchema{}
}

// nullSchema is the schema without repository.
type nullSchema struct{}

func (nullSchema) Upgrade(ctx context.Context) error {
	return errors.New("no schema repository available")
}

func (nullSchema) Version(ctx context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctx, func() {}
}
