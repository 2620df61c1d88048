package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

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

type memCharges struct {
	rows []repo.Payment
}

func (m *memCharges) Create(_ context.Context, p repo.Payment) (repo.Payment, error) {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memCharges) GetLatestByOrder(_ context.Context, orderID uuid.UUID) (repo.Payment, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].OrderID == orderID {
			return m.rows[i], nil
		}
	}
	return repo.Payment{}, pgx.ErrNoRows
}

func testPaymentService(order repo.Order) (*Service, *memCharges) {
	charges := &memCharges{}
	svc := &Service{
		Orders:   &memOrders{rows: map[uuid.UUID]repo.Order{order.ID: order}},
		Payments: charges,
		Providers: map[string]Provider{
			"pix":  Pix{APIKey: "k"},
			"card": CardGateway{Key: "k", Secret: "s"},
		},
		IntentTTL: 30 * time.Minute,
	}
	return svc, charges
}

func pendingOrder() repo.Order {
	return repo.Order{ID: uuid.New(), UserID: uuid.New(), Status: repo.OrderPendingPayment, TotalCents: 94_500}
}

func TestCreateChargeOpensPixCharge(t *testing.T) {
	order := pendingOrder()
	svc, charges := testPaymentService(order)

	charge, err := svc.CreateCharge(context.Background(), order.ID, "pix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charge.Provider != "pix" || charge.Status != repo.PaymentPending {
		t.Fatalf("charge = %+v", charge)
	}
	if charge.AmountCents != 94_500 {
		t.Fatalf("amount = %d", charge.AmountCents)
	}
	if len(charges.rows) != 1 {
		t.Fatalf("rows = %d", len(charges.rows))
	}
}

func TestCreateChargeReusesPendingCharge(t *testing.T) {
	order := pendingOrder()
	svc, charges := testPaymentService(order)

	first, err := svc.CreateCharge(context.Background(), order.ID, "pix")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CreateCharge(context.Background(), order.ID, "pix")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("pending charge must be reused")
	}
	if len(charges.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(charges.rows))
	}
}

func TestCreateChargeReplacesExpiredCharge(t *testing.T) {
	order := pendingOrder()
	svc, charges := testPaymentService(order)

	past := time.Now().Add(-time.Hour)
	charges.rows = append(charges.rows, repo.Payment{
		ID: uuid.New(), OrderID: order.ID, Provider: "pix",
		Status: repo.PaymentPending, AmountCents: order.TotalCents, ExpiresAt: &past,
	})
	charge, err := svc.CreateCharge(context.Background(), order.ID, "pix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charge.ExpiresAt == nil || !charge.ExpiresAt.After(time.Now()) {
		t.Fatalf("new charge should be fresh: %+v", charge)
	}
	if len(charges.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(charges.rows))
	}
}

func TestCreateChargeRejectsPaidOrder(t *testing.T) {
	order := pendingOrder()
	order.Status = repo.OrderPaid
	svc, _ := testPaymentService(order)
	if _, err := svc.CreateCharge(context.Background(), order.ID, "pix"); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
}

func TestCreateChargeUnknownProvider(t *testing.T) {
	order := pendingOrder()
	svc, _ := testPaymentService(order)
	if _, err := svc.CreateCharge(context.Background(), order.ID, "boleto"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestStatusFallsBackToOrder(t *testing.T) {
	order := pendingOrder()
	order.Status = repo.OrderPaid
	svc, _ := testPaymentService(order)
	status, err := svc.Status(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != repo.PaymentPaid {
		t.Fatalf("status = %q", status)
	}
}
