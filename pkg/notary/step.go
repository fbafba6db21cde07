package notary

import (
	"context"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

// Step tries to notarize once.
//
// The hash is the idempotency key, so that a retry after a lost response does not
// make a second record on the topic.
func Step(ctx context.Context, c Client, topic string, policy retry.Policy, now time.Time, n fdb.Notarization) (*fdb.Receipt, fdb.Attempt) {
	receipt, err := c.Submit(ctx, topic, Message{TransactionId: n.TransactionId, Hash: n.Hash}, n.Hash)
	if err == nil {
		return &receipt, fdb.Attempt{}
	}

	attempts := n.Attempts + 1
	if retry.IsPermanent(err) || policy.Exhausted(attempts) {
		return nil, fdb.Failed(err)
	}
	return nil, fdb.Retry(now.Add(policy.Delay(attempts)), err)
}
