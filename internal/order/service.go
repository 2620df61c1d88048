// Package order serves order history and the status lifecycle. Status
// moves forward only; CANCELLED is terminal.
package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrNotFound is returned for unknown orders or foreign owners.
	ErrNotFound = errors.New("order: not found")
	// ErrInvalidTransition is returned for status moves the lifecycle forbids.
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

var transitions = map[string][]string{
	repo.OrderPendingPayment: {repo.OrderPaid, repo.OrderCancelled},
	repo.OrderPaid:           {repo.OrderShipped, repo.OrderCancelled},
	repo.OrderShipped:        {repo.OrderDelivered},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Store is the order persistence surface.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (repo.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]repo.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]repo.OrderItem, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// View is an order with its frozen lines.
type View struct {
	repo.Order
	Items []repo.OrderItem `json:"items"`
}

// Service reads orders and applies status transitions.
type Service struct {
	Orders Store
	Bus    *events.Bus
}

// ListMine returns a page of the user's orders.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]repo.Order, error) {
	return s.Orders.ListByUser(ctx, userID, limit, offset)
}

// GetMine returns one of the user's orders with items. Foreign orders
// surface as not-found, never as forbidden.
func (s *Service) GetMine(ctx context.Context, userID, orderID uuid.UUID) (View, error) {
	o, err := s.get(ctx, orderID)
	if err != nil {
		return View{}, err
	}
	if o.UserID != userID {
		return View{}, ErrNotFound
	}
	items, err := s.Orders.ListItems(ctx, o.ID)
	if err != nil {
		return View{}, err
	}
	return View{Order: o, Items: items}, nil
}

// CancelMine lets a customer cancel an order still awaiting payment.
func (s *Service) CancelMine(ctx context.Context, userID, orderID uuid.UUID) error {
	o, err := s.get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrNotFound
	}
	if o.Status != repo.OrderPendingPayment {
		return ErrInvalidTransition
	}
	return s.transition(ctx, o, repo.OrderCancelled)
}

// SetStatus applies a back-office status transition.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (repo.Order, error) {
	o, err := s.get(ctx, orderID)
	if err != nil {
		return repo.Order{}, err
	}
	if err := s.transition(ctx, o, status); err != nil {
		return repo.Order{}, err
	}
	o.Status = status
	return o, nil
}

func (s *Service) get(ctx context.Context, orderID uuid.UUID) (repo.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, ErrNotFound
		}
		return repo.Order{}, err
	}
	return o, nil
}

func (s *Service) transition(ctx context.Context, o repo.Order, to string) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	if err := s.Orders.SetStatus(ctx, o.ID, to); err != nil {
		return err
	}
	if s.Bus != nil {
		if topic := topicFor(to); topic != "" {
			_, _ = s.Bus.Emit(ctx, topic, o.ID, map[string]any{
				"orderId": o.ID.String(),
				"userId":  o.UserID.String(),
				"status":  to,
			})
		}
	}
	return nil
}

func topicFor(status string) string {
	switch status {
	case repo.OrderPaid:
		return events.TopicOrderPaid
	case repo.OrderShipped:
		return events.TopicOrderShipped
	case repo.OrderDelivered:
		return events.TopicOrderDelivered
	case repo.OrderCancelled:
		return events.TopicOrderCancelled
	default:
		return ""
	}
}
