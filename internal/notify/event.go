// Package notify queues outbound events and delivers them to webhook and
// Kafka sinks off the request path. Delivery failures are retried with
// exponential backoff and then logged; they never reach the caller that
// published the event.
package notify

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusUpdated = "order.status_updated"
	TypeOrderCancelled     = "order.cancelled"
	TypeApplicationStatus  = "application.status_changed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"` // partitioning key, usually the aggregate id
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

func NewEvent(typ, key string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher is what services depend on. Publish must not block on delivery.
type Publisher interface {
	Publish(e Event) bool
}

// Discard drops every event. Useful in tests and when no sink is configured.
type Discard struct{}

func (Discard) Publish(Event) bool { return true }
