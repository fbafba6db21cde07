package db

import "context"

type Database interface {
	Nodes() NodeInterface
	Ledger() LedgerInterface
	Claims() ClaimInterface
	Uploads() UploadInterface
	Reports() ReportInterface
	Notary() NotaryInterface
	Guardian() GuardianInterface
	Outbox() OutboxInterface
	Schema() SchemaInterface
	Close() error
}

type SchemaInterface interface {
	// Version of the schema applied to the database. 0 when nothing applied.
	Version(ctx context.Context) (int, error)

	// Upgrade applies schema versions newer than the database.
	Upgrade(ctx context.Context) error

	// Context is cancelled when the schema repository gets newer than the database.
	Context(ctx context.Context) (context.Context, context.CancelFunc)
}
