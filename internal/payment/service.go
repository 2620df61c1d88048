package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrOrderNotFound is returned for unknown orders.
	ErrOrderNotFound = errors.New("payment: order not found")
	// ErrOrderNotPayable is returned when the order status forbids new charges.
	ErrOrderNotPayable = errors.New("payment: order does not accept charges")
	// ErrUnknownProvider is returned for unsupported payment methods.
	ErrUnknownProvider = errors.New("payment: unknown provider")
)

// OrderSource reads orders when opening charges.
type OrderSource interface {
	Get(ctx context.Context, id uuid.UUID) (repo.Order, error)
}

// ChargeStore persists charge attempts.
type ChargeStore interface {
	Create(ctx context.Context, p repo.Payment) (repo.Payment, error)
	GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (repo.Payment, error)
}

// Service opens charges with the configured providers.
type Service struct {
	Orders    OrderSource
	Payments  ChargeStore
	Providers map[string]Provider
	IntentTTL time.Duration
	Now       func() time.Time
}

// CreateCharge opens (or reuses) a charge for the given order. A pending
// unexpired charge is returned as-is so retrying the payment page never
// double-charges.
func (s *Service) CreateCharge(ctx context.Context, orderID uuid.UUID, method string) (repo.Payment, error) {
	providerKey := strings.ToLower(strings.TrimSpace(method))
	provider, ok := s.Providers[providerKey]
	if !ok {
		return repo.Payment{}, ErrUnknownProvider
	}
	result := "error"
	defer func() {
		if obs.PaymentIntentTotal != nil {
			obs.PaymentIntentTotal.WithLabelValues(providerKey, result).Inc()
		}
	}()

	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Payment{}, ErrOrderNotFound
		}
		return repo.Payment{}, err
	}
	if order.Status != repo.OrderPendingPayment {
		return repo.Payment{}, ErrOrderNotPayable
	}

	now := s.now()
	existing, err := s.Payments.GetLatestByOrder(ctx, orderID)
	switch {
	case err == nil:
		if existing.Status == repo.PaymentPaid {
			return repo.Payment{}, ErrOrderNotPayable
		}
		if existing.Status == repo.PaymentPending &&
			(existing.ExpiresAt == nil || existing.ExpiresAt.After(now)) {
			result = "reused"
			return existing, nil
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return repo.Payment{}, err
	}

	ttl := s.IntentTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	req := ChargeRequest{
		OrderID:      orderID.String(),
		AmountCents:  order.TotalCents,
		ExpiresInSec: int(ttl.Seconds()),
	}
	if order.InstallmentCount != nil {
		req.Installments = *order.InstallmentCount
	}
	resp, err := provider.CreateCharge(ctx, req)
	if err != nil {
		return repo.Payment{}, fmt.Errorf("payment: create charge: %w", err)
	}

	expiresAt := now.Add(ttl)
	if resp.ExpiresAt > 0 {
		expiresAt = time.Unix(resp.ExpiresAt, 0)
	}
	token := resp.Token
	created, err := s.Payments.Create(ctx, repo.Payment{
		OrderID:     orderID,
		Provider:    providerKey,
		Status:      repo.PaymentPending,
		AmountCents: order.TotalCents,
		IntentToken: &token,
		Payload:     chargePayload(resp),
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		return repo.Payment{}, err
	}
	result = "success"
	return created, nil
}

// Status returns the best-known payment status for an order.
func (s *Service) Status(ctx context.Context, orderID uuid.UUID) (string, error) {
	charge, err := s.Payments.GetLatestByOrder(ctx, orderID)
	if err == nil {
		return charge.Status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	order, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	switch order.Status {
	case repo.OrderPaid, repo.OrderShipped, repo.OrderDelivered:
		return repo.PaymentPaid, nil
	case repo.OrderCancelled:
		return repo.PaymentFailed, nil
	default:
		return repo.PaymentPending, nil
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func chargePayload(resp ChargeResponse) []byte {
	data := fmt.Sprintf(`{"provider":%q,"token":%q,"qrCode":%q,"expiresAt":%d}`,
		resp.Provider, resp.Token, resp.QRCode, resp.ExpiresAt)
	return []byte(data)
}
