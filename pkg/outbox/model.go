package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/Property-Marketplace/pkg/tracing"
)

// Status is the relay state of an outbox row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxRetries is how many failed dispatches an event gets before the relay
// leaves it for an operator.
const MaxRetries = 5

// Kafka headers stamped on every dispatched event. Event.Headers may add
// more but never replaces these.
const (
	HeaderEventType   = "event_type"
	HeaderTraceparent = tracing.TraceparentHeader
	HeaderSource      = "source"
)

// Event is a domain event waiting in the outbox. AggregateID doubles as the
// Kafka key, so every event for one aggregate keeps its order.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte // JSON
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	RetryCount    int
}

// NewEvent encodes payload as JSON and captures the caller's trace so the
// consumer side can continue it once the relay ships the event.
func NewEvent(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       body,
		Headers:       map[string]string{},
		Traceparent:   tracing.Traceparent(ctx),
	}, nil
}

// WithSource tags the event with the service that raised it.
func (e Event) WithSource(source string) Event {
	headers := make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		headers[k] = v
	}
	headers[HeaderSource] = source
	e.Headers = headers
	return e
}

// Exhausted reports whether the relay has given up on the event.
func (e Event) Exhausted() bool { return e.RetryCount >= MaxRetries }
