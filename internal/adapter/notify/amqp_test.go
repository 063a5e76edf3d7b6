package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

type fakeChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestAMQPNotifier_Publishes(t *testing.T) {
	ch := &fakeChannel{}
	n := NewAMQPNotifier(ch, "")
	at := time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return at }

	if err := n.NotifyLoanFunded(context.Background(), "bob", decimal.NewFromInt(500), "lena"); err != nil {
		t.Fatalf("NotifyLoanFunded: %v", err)
	}
	if ch.key != DefaultQueue || len(ch.msgs) != 1 {
		t.Fatalf("key=%s msgs=%d", ch.key, len(ch.msgs))
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent || msg.Type != TypeLoanFunded {
		t.Fatalf("publishing = %+v", msg)
	}
	var m Message
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		t.Fatalf("body: %v", err)
	}
	if m.Borrower != "bob" || m.Lender != "lena" || !m.Amount.Equal(decimal.NewFromInt(500)) || !m.At.Equal(at) {
		t.Fatalf("message = %+v", m)
	}

	if err := n.NotifyLoanRequested(context.Background(), "bob", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("NotifyLoanRequested: %v", err)
	}
	if ch.msgs[1].Type != TypeLoanRequested {
		t.Fatalf("type = %s", ch.msgs[1].Type)
	}
}

func TestAMQPNotifier_PublishError(t *testing.T) {
	sentinel := errors.New("channel closed")
	n := NewAMQPNotifier(&fakeChannel{err: sentinel}, "q")
	if err := n.NotifyLoanRequested(context.Background(), "bob", decimal.NewFromInt(1)); !errors.Is(err, sentinel) {
		t.Fatalf("want %v, got %v", sentinel, err)
	}
}
