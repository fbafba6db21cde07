// Package testenv runs PostgreSQL in a container for integration tests.
//
//	var pg *testenv.Server
//
//	func TestMain(m *testing.M) {
//		os.Exit(testenv.Main(m, &pg))
//	}
//
//	func TestSomething(t *testing.T) {
//		db := pg.Fresh(t) // an empty database with the latest schema
//		...
//	}
package testenv

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/db/postgres"
	"github.com/jackc/pgx/v4"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SchemaRepository is the path to the schema repository of this module.
func SchemaRepository() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "schema", "repository")
}

type Server struct {
	container *tcpostgres.PostgresContainer
	url       string
	seq       atomic.Int64
}

// Start runs a PostgreSQL container.
func Start(ctx context.Context) (*Server, error) {
	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fairtrace"),
		tcpostgres.WithUsername("fairtrace"),
		tcpostgres.WithPassword("fairtrace"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}
	u, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	return &Server{container: container, url: u}, nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.container.Terminate(ctx)
}

// Main starts a server, runs tests and stops the server.
func Main(m *testing.M, server **Server) int {
	ctx := context.Background()
	s, err := Start(ctx)
	if err != nil {
		fmt.Printf("failed to start postgres: %v\n", err)
		return 1
	}
	defer s.Stop(ctx)
	*server = s
	return m.Run()
}

// Fresh creates an empty database with the latest schema. It is dropped after the test.
func (s *Server) Fresh(t *testing.T) fdb.Database {
	t.Helper()
	ctx := context.Background()

	name := fmt.Sprintf("test_%d", s.seq.Add(1))
	admin, err := pgx.Connect(ctx, s.url)
	if err != nil {
		t.Fatal(err)
	}
	defer admin.Close(ctx)
	if _, err := admin.Exec(ctx, `create database "`+name+`"`); err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(s.url)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + name

	db, err := postgres.New(ctx, u.String(), postgres.WithSchemaRepository(SchemaRepository()))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Schema().Upgrade(ctx); err != nil {
		db.Close()
		t.Fatal(err)
	}

	t.Cleanup(func() {
		db.Close()
		admin, err := pgx.Connect(ctx, s.url)
		if err != nil {
			t.Log(err)
			return
		}
		defer admin.Close(ctx)
		if _, err := admin.Exec(ctx, `drop database "`+name+`" with (force)`); err != nil {
			t.Log(err)
		}
	})
	return db
}
