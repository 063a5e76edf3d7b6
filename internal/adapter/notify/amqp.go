package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const (
	DefaultQueue = "loan_notifications"

	TypeLoanRequested = "loan_requested"
	TypeLoanFunded    = "loan_funded"
)

// Message is the JSON body put on the queue.
type Message struct {
	Type     string          `json:"type"`
	Borrower string          `json:"borrower"`
	Amount   decimal.Decimal `json:"amount"`
	Lender   string          `json:"lender,omitempty"`
	At       time.Time       `json:"at"`
}

// Publisher is the part of *amqp.Channel the notifier uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPNotifier struct {
	ch    Publisher
	queue string
	now   func() time.Time
}

var _ Notifier = (*AMQPNotifier)(nil)

func NewAMQPNotifier(ch Publisher, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPNotifier{ch: ch, queue: queue, now: func() time.Time { return time.Now().UTC() }}
}

// DialAMQP connects, opens a channel and declares the durable queue.
// Closing the returned connection closes the channel too.
func DialAMQP(url, queue string) (*AMQPNotifier, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	n := NewAMQPNotifier(ch, queue)
	_, err = ch.QueueDeclare(
		n.queue, // queue name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp declare %s: %w", n.queue, err)
	}
	return n, conn, nil
}

func (n *AMQPNotifier) publish(ctx context.Context, m Message) error {
	m.At = n.now()
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	err = n.ch.PublishWithContext(ctx,
		"",      // exchange
		n.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    m.At,
			Type:         m.Type,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", m.Type, err)
	}
	return nil
}

func (n *AMQPNotifier) NotifyLoanRequested(ctx context.Context, borrower string, amount decimal.Decimal) error {
	return n.publish(ctx, Message{Type: TypeLoanRequested, Borrower: borrower, Amount: amount})
}

func (n *AMQPNotifier) NotifyLoanFunded(ctx context.Context, borrower string, amount decimal.Decimal, lender string) error {
	return n.publish(ctx, Message{Type: TypeLoanFunded, Borrower: borrower, Amount: amount, Lender: lender})
}
