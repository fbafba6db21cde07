package notary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
)

// Message is posted to the consensus topic.
type Message struct {
	TransactionId string `json:"transactionId"`
	Hash          string `json:"hash"`
}

type receipt struct {
	SequenceNumber     int64     `json:"sequenceNumber"`
	ConsensusTimestamp time.Time `json:"consensusTimestamp"`
}

// Client submits messages to the consensus gateway.
type Client interface {
	// Submit a message to the topic.
	//
	// The gateway is idempotent on key: submitting with the same key returns the first receipt.
	Submit(ctx context.Context, topic string, message Message, key string) (fdb.Receipt, error)
}

type client struct {
	gw *gateway.Client
}

func NewClient(gw *gateway.Client) Client {
	return &client{gw: gw}
}

func (c *client) Submit(ctx context.Context, topic string, message Message, key string) (fdb.Receipt, error) {
	r := receipt{}
	header := http.Header{"Idempotency-Key": []string{key}}
	path := fmt.Sprintf("/topics/%s/messages", url.PathEscape(topic))
	if err := c.gw.Do(ctx, http.MethodPost, path, header, message, &r); err != nil {
		return fdb.Receipt{}, xe.WrapWithNote("notarize "+message.TransactionId, err)
	}
	return fdb.Receipt{
		TopicId:        topic,
		SequenceNumber: r.SequenceNumber,
		ConsensusAt:    r.ConsensusTimestamp,
	}, nil
}
