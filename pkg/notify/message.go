// Package notify delivers SMS and WhatsApp messages to nodes.
//
// Messages are written to the outbox together with the ledger change causing them,
// relayed to RabbitMQ, then consumed and sent through the messaging gateway.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/google/uuid"
)

// Topic of outbox messages for notifications.
const Topic = "notification"

type Channel string

const (
	SMS      Channel = "sms"
	WhatsApp Channel = "whatsapp"
)

func AsChannel(s string) (Channel, error) {
	switch Channel(s) {
	case SMS, WhatsApp:
		return Channel(s), nil
	default:
		return Channel(s), fdb.NewErrInvalidParam("channel", fmt.Sprintf("unknown channel: %s", s))
	}
}

// Message is a notification to be sent.
type Message struct {
	Id        string            `json:"id"`
	Channel   Channel           `json:"channel"`
	To        string            `json:"to"`
	Template  string            `json:"template"`
	Params    map[string]string `json:"params"`
	CreatedAt time.Time         `json:"createdAt"`
}

const TransactionReceipt = "transaction_receipt"

var templates = map[string]*template.Template{
	TransactionReceipt: template.Must(
		template.New(TransactionReceipt).Option("missingkey=error").Parse(
			"{{.quantity}} {{.unit}} of {{.product}} received by {{.buyer}} on {{.date}}. Ref {{.number}}",
		),
	),
}

// Render makes the text of the message.
func Render(m Message) (string, error) {
	t, ok := templates[m.Template]
	if !ok {
		return "", fmt.Errorf("%w: unknown template: %s", fdb.ErrInvalidParam, m.Template)
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, m.Params); err != nil {
		return "", fmt.Errorf("%w: template %s: %w", fdb.ErrInvalidParam, m.Template, err)
	}
	return buf.String(), nil
}

// Receipt is a message to the farmer who has delivered products in the transaction.
//
// ok is false when the farmer cannot be notified.
func Receipt(tx fdb.Transaction, farmer fdb.Node, buyer fdb.Node, product fdb.Product) (m Message, ok bool) {
	if farmer.Type != fdb.Farmer || farmer.Phone == "" {
		return Message{}, false
	}
	if tx.Kind != fdb.External || tx.Type != string(fdb.Incoming) {
		return Message{}, false
	}
	return Message{
		Id:       uuid.NewString(),
		Channel:  SMS,
		To:       farmer.Phone,
		Template: TransactionReceipt,
		Params: map[string]string{
			"quantity": tx.Quantity.String(),
			"unit":     tx.Unit,
			"product":  product.Name,
			"buyer":    buyer.Name,
			"date":     tx.Date.Format(time.DateOnly),
			"number":   fmt.Sprintf("%d", tx.Number),
		},
		CreatedAt: tx.CreatedAt,
	}, true
}

// Encode is the outbox payload of the message.
func Encode(m Message) (json.RawMessage, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return buf, nil
}

func Decode(payload []byte) (Message, error) {
	m := Message{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return m, fmt.Errorf("%w: malformed message: %w", fdb.ErrInvalidParam, err)
	}
	if _, err := AsChannel(string(m.Channel)); err != nil {
		return m, err
	}
	return m, nil
}
