package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/fairtrace/fairtrace/pkg/conn/gateway"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Sender sends a text to a phone.
type Sender interface {
	Send(ctx context.Context, channel Channel, to string, text string) error
}

type gatewaySender struct {
	gw *gateway.Client
}

// NewSender sends messages through the messaging gateway.
func NewSender(gw *gateway.Client) Sender {
	return &gatewaySender{gw: gw}
}

func (s *gatewaySender) Send(ctx context.Context, channel Channel, to string, text string) error {
	body := map[string]string{"channel": string(channel), "to": to, "text": text}
	return xe.Wrap(s.gw.Do(ctx, http.MethodPost, "/messages", nil, body, nil))
}

type Outcome string

const (
	Sent     Outcome = "sent"
	Dropped  Outcome = "dropped"
	Requeued Outcome = "requeued"
)

// Deliver sends a delivery and acknowledges it.
//
// Sent or permanently failed deliveries are acked. Transient failures are nacked to be requeued.
func Deliver(ctx context.Context, logger *zap.Logger, sender Sender, d amqp.Delivery) (Outcome, error) {
	m, err := Decode(d.Body)
	if err != nil {
		logger.Warn("malformed message is dropped", zap.String("messageId", d.MessageId), zap.Error(err))
		return Dropped, d.Ack(false)
	}

	text, err := Render(m)
	if err != nil {
		logger.Warn("message cannot be rendered", zap.String("messageId", d.MessageId), zap.Error(err))
		return Dropped, d.Ack(false)
	}

	if err := sender.Send(ctx, m.Channel, m.To, text); err != nil {
		if retry.IsPermanent(err) || errors.Is(err, fdb.ErrInvalidParam) {
			logger.Warn(
				"message is refused by gateway",
				zap.String("messageId", d.MessageId), zap.String("template", m.Template), zap.Error(err),
			)
			return Dropped, d.Ack(false)
		}
		logger.Info("message is requeued", zap.String("messageId", d.MessageId), zap.Error(err))
		return Requeued, d.Nack(false, true)
	}

	logger.Debug("message is sent", zap.String("messageId", d.MessageId), zap.String("template", m.Template))
	return Sent, d.Ack(false)
}

// Consume delivers messages from deliveries until ctx is done or deliveries is closed.
func Consume(ctx context.Context, logger *zap.Logger, sender Sender, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return xe.New("delivery channel is closed")
			}
			if _, err := Deliver(ctx, logger, sender, d); err != nil {
				return xe.WrapWithNote("acknowledge", err)
			}
		}
	}
}
