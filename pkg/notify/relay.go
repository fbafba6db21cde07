package notify

import (
	"context"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publishing is a part of *amqp.Channel used to publish.
type Publishing interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Topology is a part of *amqp.Channel used to declare exchange and queue.
type Topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare makes a durable direct exchange and a queue bound for every channel.
func Declare(ch Topology, exchange string, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return xe.WrapWithNote("declare exchange "+exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return xe.WrapWithNote("declare queue "+queue, err)
	}
	for _, key := range []Channel{SMS, WhatsApp} {
		if err := ch.QueueBind(queue, string(key), exchange, false, nil); err != nil {
			return xe.WrapWithNote("bind queue "+queue, err)
		}
	}
	return nil
}

// Relay publishes outbox messages to the exchange.
type Relay struct {
	ch       Publishing
	exchange string
}

func NewRelay(ch Publishing, exchange string) *Relay {
	return &Relay{ch: ch, exchange: exchange}
}

// Publish outbox messages in order, with the channel as routing key.
//
// It stops at the first failure, and returns ids published so far with the error.
// Malformed messages are skipped and reported as published, since they never become valid.
func (r *Relay) Publish(ctx context.Context, messages []fdb.OutboxMessage) ([]string, error) {
	published := []string{}
	for _, om := range messages {
		m, err := Decode(om.Payload)
		if err != nil {
			published = append(published, om.Id)
			continue
		}
		err = r.ch.PublishWithContext(ctx, r.exchange, string(m.Channel), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    om.Id,
			Timestamp:    om.CreatedAt,
			Type:         m.Template,
			Body:         om.Payload,
		})
		if err != nil {
			return published, xe.WrapWithNote("publish "+om.Id, err)
		}
		published = append(published, om.Id)
	}
	return published, nil
}
