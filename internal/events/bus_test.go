package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/repo"
)

type memEventStore struct {
	rows []repo.DomainEvent
}

func (m *memEventStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error) {
	ev := repo.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.rows = append(m.rows, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []repo.DomainEvent
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, ev repo.DomainEvent) error {
	r.seen = append(r.seen, ev)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memEventStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	orderID := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicOrderPaid, orderID, map[string]any{"orderId": orderID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Topic != TopicOrderPaid {
		t.Fatalf("topic = %q", ev.Topic)
	}
	if len(store.rows) != 1 || len(notifier.seen) != 1 {
		t.Fatalf("persisted %d, notified %d", len(store.rows), len(notifier.seen))
	}
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	store := &memEventStore{}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	_, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), nil)
	if err == nil {
		t.Fatal("expected joined notifier error")
	}
	if len(store.rows) != 1 {
		t.Fatalf("event must persist despite notifier failure, rows = %d", len(store.rows))
	}
}

func TestEmitValidatesInput(t *testing.T) {
	bus := &Bus{Store: &memEventStore{}}
	if _, err := bus.Emit(context.Background(), "", uuid.New(), nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderPaid, uuid.Nil, nil); err == nil {
		t.Fatal("expected error for nil aggregate")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderPaid, uuid.New(), []byte("not-json")); err == nil {
		t.Fatal("expected error for invalid json payload")
	}
}
