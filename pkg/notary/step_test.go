package notary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/notary"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
)

type fakeClient struct {
	receipt fdb.Receipt
	err     error

	keys []string
}

func (f *fakeClient) Submit(_ context.Context, topic string, m notary.Message, key string) (fdb.Receipt, error) {
	f.keys = append(f.keys, key)
	return f.receipt, f.err
}

func TestStep(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	policy := retry.Policy{Base: time.Second, Max: time.Minute, Attempts: 4}
	pending := fdb.Notarization{TransactionId: "tx-1", Hash: "h-1", Status: fdb.NotarizationPending, Attempts: 2}

	t.Run("when submitted, it returns the receipt with the hash as key", func(t *testing.T) {
		c := &fakeClient{receipt: fdb.Receipt{TopicId: "t", SequenceNumber: 9}}
		r, a := notary.Step(context.Background(), c, "t", policy, now, pending)
		if r == nil || r.SequenceNumber != 9 {
			t.Errorf("receipt: %+v", r)
		}
		if a.RetryAt != nil || a.Failure != nil {
			t.Errorf("attempt: %+v", a)
		}
		if len(c.keys) != 1 || c.keys[0] != "h-1" {
			t.Errorf("keys: %v", c.keys)
		}
	})

	t.Run("when the gateway is unavailable, it is retried with backoff", func(t *testing.T) {
		c := &fakeClient{err: errors.New("timeout")}
		r, a := notary.Step(context.Background(), c, "t", policy, now, pending)
		if r != nil {
			t.Errorf("receipt: %+v", r)
		}
		if a.RetryAt == nil || !a.RetryAt.Equal(now.Add(4*time.Second)) {
			t.Errorf("retry at: %v", a.RetryAt)
		}
		if a.Err == nil {
			t.Error("it should be counted as a failed attempt")
		}
	})

	t.Run("when attempts are exhausted, it fails", func(t *testing.T) {
		c := &fakeClient{err: errors.New("timeout")}
		n := pending
		n.Attempts = 3
		_, a := notary.Step(context.Background(), c, "t", policy, now, n)
		if a.Failure == nil || a.RetryAt != nil {
			t.Errorf("attempt: %+v", a)
		}
	})

	t.Run("when the gateway refuses, it fails", func(t *testing.T) {
		c := &fakeClient{err: retry.Permanent(errors.New("bad topic"))}
		_, a := notary.Step(context.Background(), c, "t", policy, now, pending)
		if a.Failure == nil {
			t.Errorf("attempt: %+v", a)
		}
	})
}
