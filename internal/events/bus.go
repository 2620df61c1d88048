// Package events persists domain events and fans them out to notifiers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/repo"
)

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderShipped   = "order.shipped"
	TopicOrderDelivered = "order.delivered"
	TopicPaymentFailed  = "payment.failed"
	TopicPaymentExpired = "payment.expired"
	TopicKYCSubmitted   = "kyc.submitted"
	TopicKYCReviewed    = "kyc.reviewed"
)

// Store defines the persistence operation required by the bus.
type Store interface {
	Insert(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error)
}

// Notifier reacts to emitted events (email, task queues, metrics).
type Notifier interface {
	Notify(ctx context.Context, event repo.DomainEvent) error
}

// Bus persists domain events and dispatches them to notifiers. Notifier
// failures do not undo persistence; they come back joined so callers can
// log them.
type Bus struct {
	Store     Store
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (repo.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return repo.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return repo.DomainEvent{}, errors.New("events: topic is required")
	}
	if aggregateID == uuid.Nil {
		return repo.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.Insert(ctx, topic, aggregateID, encoded)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		if len(v) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append([]byte(nil), v...), nil
	case json.RawMessage:
		return encodePayload([]byte(v))
	default:
		return json.Marshal(v)
	}
}
