// Package postgres implements pkg/db on PostgreSQL.
package postgres

import (
	"context"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	pgclaims "github.com/fairtrace/fairtrace/pkg/db/postgres/claims"
	pgguardian "github.com/fairtrace/fairtrace/pkg/db/postgres/guardian"
	pgledger "github.com/fairtrace/fairtrace/pkg/db/postgres/ledger"
	pgnodes "github.com/fairtrace/fairtrace/pkg/db/postgres/nodes"
	pgnotary "github.com/fairtrace/fairtrace/pkg/db/postgres/notary"
	pgoutbox "github.com/fairtrace/fairtrace/pkg/db/postgres/outbox"
	pgreports "github.com/fairtrace/fairtrace/pkg/db/postgres/reports"
	pgschema "github.com/fairtrace/fairtrace/pkg/db/postgres/schema"
	pguploads "github.com/fairtrace/fairtrace/pkg/db/postgres/uploads"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/jackc/pgx/v4/pgxpool"
)

type fairtracePG struct {
	pool     *pgxpool.Pool
	nodes    fdb.NodeInterface
	ledger   fdb.LedgerInterface
	claims   fdb.ClaimInterface
	uploads  fdb.UploadInterface
	reports  fdb.ReportInterface
	notary   fdb.NotaryInterface
	guardian fdb.GuardianInterface
	outbox   fdb.OutboxInterface
	schema   fdb.SchemaInterface
}

type Config struct {
	SchemaRepository string
	Clock            func() time.Time
}

func DefaultConfig() Config {
	return Config{Clock: time.Now}
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Config) *Config {
		c.Clock = clock
		return c
	}
}

func New(ctx context.Context, url string, options ...Option) (fdb.Database, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema fdb.SchemaInterface = pgschema.Null()
	if c.SchemaRepository != "" {
		schema = pgschema.New(p, c.SchemaRepository)
	}

	return &fairtracePG{
		pool:     pool,
		nodes:    pgnodes.New(p),
		ledger:   pgledger.New(p, pgledger.WithClock(c.Clock)),
		claims:   pgclaims.New(p, pgclaims.WithClock(c.Clock)),
		uploads:  pguploads.New(p),
		reports:  pgreports.New(p),
		notary:   pgnotary.New(p),
		guardian: pgguardian.New(p),
		outbox:   pgoutbox.New(p),
		schema:   schema,
	}, nil
}

func (f *fairtracePG) Nodes() fdb.NodeInterface {
	return f.nodes
}

func (f *fairtracePG) Ledger() fdb.LedgerInterface {
	return f.ledger
}

func (f *fairtracePG) Claims() fdb.ClaimInterface {
	return f.claims
}

func (f *fairtracePG) Uploads() fdb.UploadInterface {
	return f.uploads
}

func (f *fairtracePG) Reports() fdb.ReportInterface {
	return f.reports
}

func (f *fairtracePG) Notary() fdb.NotaryInterface {
	return f.notary
}

func (f *fairtracePG) Guardian() fdb.GuardianInterface {
	return f.guardian
}

func (f *fairtracePG) Outbox() fdb.OutboxInterface {
	return f.outbox
}

func (f *fairtracePG) Schema() fdb.SchemaInterface {
	return f.schema
}

func (f *fairtracePG) Close() error {
	f.pool.Close()
	return nil
}
