// Package mirror copies committed loan transitions to an append-only
// external log. The ledger's own store stays the source of truth.
package mirror

import (
	"context"
	"encoding/json"
	"time"
)

const DefaultStream = "loan_stream"

// Event is the document stored on the stream.
type Event struct {
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) (txID string, err error)
}

// Nop is used when no external log is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) (string, error) { return "", nil }
