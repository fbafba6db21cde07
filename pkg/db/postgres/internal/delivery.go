package internal

import (
	"context"
	"encoding/json"
	"time"

	kpool "github.com/fairtrace/fairtrace/pkg/conn/db/postgres/pool"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/guardian"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/fairtrace/fairtrace/pkg/notify"
	"github.com/google/uuid"
)

// EnqueueNotarization queues the hash of the transaction to be notarized.
func EnqueueNotarization(ctx context.Context, conn kpool.Queryer, tx fdb.Transaction) error {
	hash, err := notary.Hash(tx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(
		ctx,
		`
		insert into "notarization" ("transaction_id", "hash", "status")
		values ($1, $2, $3)
		on conflict ("transaction_id") do nothing
		`,
		tx.Id, hash, fdb.NotarizationPending,
	)
	return xe.Wrap(err)
}

// EnqueueOutbox writes a message to be published.
func EnqueueOutbox(ctx context.Context, conn kpool.Queryer, topic string, payload json.RawMessage) (string, error) {
	id := uuid.NewString()
	if _, err := conn.Exec(
		ctx,
		`insert into "outbox" ("id", "topic", "payload") values ($1, $2, $3::jsonb)`,
		id, topic, string(payload),
	); err != nil {
		return "", xe.Wrap(err)
	}
	return id, nil
}

// EnqueueReceipt queues an SMS to the farmer of an incoming transaction, if the farmer can be notified.
func EnqueueReceipt(ctx context.Context, conn kpool.Queryer, tx fdb.Transaction) error {
	if tx.Kind != fdb.External || tx.Type != string(fdb.Incoming) {
		return nil
	}
	nodes, err := GetNodes(ctx, conn, []string{tx.SourceNodeId, tx.DestinationNodeId})
	if err != nil {
		return err
	}
	product, err := GetProduct(ctx, conn, tx.ProductId)
	if err != nil {
		return err
	}

	m, ok := notify.Receipt(tx, nodes[tx.SourceNodeId], nodes[tx.DestinationNodeId], product)
	if !ok {
		return nil
	}
	payload, err := notify.Encode(m)
	if err != nil {
		return err
	}
	_, err = EnqueueOutbox(ctx, conn, notify.Topic, payload)
	return err
}

// EnqueueSubmission queues the attachment to be decided by the policy engine.
func EnqueueSubmission(ctx context.Context, conn kpool.Queryer, claim fdb.Claim, attached fdb.AttachedClaim, now time.Time) error {
	doc, err := guardian.NewDocument(claim, attached)
	if err != nil {
		return err
	}
	_, err = conn.Exec(
		ctx,
		`
		insert into "guardian_submission"
			("id", "attached_claim_id", "policy", "document", "state", "next_attempt_at")
		values ($1, $2, $3, $4::jsonb, $5, $6)
		`,
		uuid.NewString(), attached.Id, claim.GuardianPolicy, string(doc), fdb.SubmissionQueued, now,
	)
	return xe.Wrap(err)
}
