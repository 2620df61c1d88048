package order

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

type memOrders struct {
	rows map[uuid.UUID]repo.Order
}

func (m *memOrders) Get(_ context.Context, id uuid.UUID) (repo.Order, error) {
	o, ok := m.rows[id]
	if !ok {
		return repo.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]repo.Order, error) {
	var out []repo.Order
	for _, o := range m.rows {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListItems(context.Context, uuid.UUID) ([]repo.OrderItem, error) {
	return nil, nil
}

func (m *memOrders) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	o := m.rows[id]
	o.Status = status
	m.rows[id] = o
	return nil
}

type memEventStore struct{ rows []repo.DomainEvent }

func (m *memEventStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error) {
	ev := repo.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.rows = append(m.rows, ev)
	return ev, nil
}

func seed(status string) (*Service, *memOrders, *memEventStore, repo.Order) {
	o := repo.Order{ID: uuid.New(), UserID: uuid.New(), Status: status, TotalCents: 94_500}
	store := &memOrders{rows: map[uuid.UUID]repo.Order{o.ID: o}}
	eventStore := &memEventStore{}
	return &Service{Orders: store, Bus: &events.Bus{Store: eventStore}}, store, eventStore, o
}

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{repo.OrderPendingPayment, repo.OrderPaid, true},
		{repo.OrderPendingPayment, repo.OrderCancelled, true},
		{repo.OrderPendingPayment, repo.OrderShipped, false},
		{repo.OrderPaid, repo.OrderShipped, true},
		{repo.OrderPaid, repo.OrderDelivered, false},
		{repo.OrderShipped, repo.OrderDelivered, true},
		{repo.OrderShipped, repo.OrderCancelled, false},
		{repo.OrderDelivered, repo.OrderCancelled, false},
		{repo.OrderCancelled, repo.OrderPaid, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestCancelMineOnlyWhilePending(t *testing.T) {
	svc, store, eventStore, o := seed(repo.OrderPendingPayment)
	if err := svc.CancelMine(context.Background(), o.UserID, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if store.rows[o.ID].Status != repo.OrderCancelled {
		t.Fatalf("status = %q", store.rows[o.ID].Status)
	}
	if len(eventStore.rows) != 1 || eventStore.rows[0].Topic != events.TopicOrderCancelled {
		t.Fatalf("events = %+v", eventStore.rows)
	}

	svc, _, _, o = seed(repo.OrderPaid)
	if err := svc.CancelMine(context.Background(), o.UserID, o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGetMineHidesForeignOrders(t *testing.T) {
	svc, _, _, o := seed(repo.OrderPaid)
	if _, err := svc.GetMine(context.Background(), uuid.New(), o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := svc.GetMine(context.Background(), o.UserID, o.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

func TestSetStatusEmitsEvent(t *testing.T) {
	svc, store, eventStore, o := seed(repo.OrderPaid)
	updated, err := svc.SetStatus(context.Background(), o.ID, repo.OrderShipped)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != repo.OrderShipped || store.rows[o.ID].Status != repo.OrderShipped {
		t.Fatalf("status not applied: %+v", updated)
	}
	if len(eventStore.rows) != 1 || eventStore.rows[0].Topic != events.TopicOrderShipped {
		t.Fatalf("events = %+v", eventStore.rows)
	}
}

func TestSetStatusRejectsBackwardMove(t *testing.T) {
	svc, _, _, o := seed(repo.OrderDelivered)
	if _, err := svc.SetStatus(context.Background(), o.ID, repo.OrderPaid); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
