package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

type memSettleOrders struct {
	rows map[uuid.UUID]repo.Order
}

func (m *memSettleOrders) GetForUpdate(_ context.Context, id uuid.UUID) (repo.Order, error) {
	o, ok := m.rows[id]
	if !ok {
		return repo.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memSettleOrders) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	o := m.rows[id]
	o.Status = status
	m.rows[id] = o
	return nil
}

type memSettleCharges struct {
	rows map[uuid.UUID]repo.Payment // by order id
}

func (m *memSettleCharges) GetLatestByOrder(_ context.Context, orderID uuid.UUID) (repo.Payment, error) {
	p, ok := m.rows[orderID]
	if !ok {
		return repo.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memSettleCharges) SetStatus(_ context.Context, id uuid.UUID, status string, _ []byte) error {
	for orderID, p := range m.rows {
		if p.ID == id {
			p.Status = status
			m.rows[orderID] = p
		}
	}
	return nil
}

type memSettleCoupons struct {
	coupons    map[string]repo.Coupon
	usages     map[uuid.UUID]bool
	increments int
}

func (m *memSettleCoupons) GetByCode(_ context.Context, code string) (repo.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return repo.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memSettleCoupons) GetByCodeForUpdate(ctx context.Context, code string) (repo.Coupon, error) {
	return m.GetByCode(ctx, code)
}

func (m *memSettleCoupons) GetUsageByOrder(_ context.Context, _, orderID uuid.UUID) (repo.CouponUsage, error) {
	if m.usages[orderID] {
		return repo.CouponUsage{OrderID: orderID}, nil
	}
	return repo.CouponUsage{}, pgx.ErrNoRows
}

func (m *memSettleCoupons) InsertUsage(_ context.Context, _, orderID uuid.UUID, _ *uuid.UUID, _ int64) error {
	m.usages[orderID] = true
	return nil
}

func (m *memSettleCoupons) IncrementUsedCount(context.Context, uuid.UUID) error {
	m.increments++
	return nil
}

type memRunner struct{ stores SettleStores }

func (r memRunner) InTx(ctx context.Context, fn func(ctx context.Context, s SettleStores) error) error {
	return fn(ctx, r.stores)
}

type memEventStore struct{ rows []repo.DomainEvent }

func (m *memEventStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error) {
	ev := repo.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.rows = append(m.rows, ev)
	return ev, nil
}

type webhookFixture struct {
	orders  *memSettleOrders
	charges *memSettleCharges
	coupons *memSettleCoupons
	events  *memEventStore
	pix     Pix
	server  http.Handler
	order   repo.Order
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	code := "DEZ10"
	order := repo.Order{
		ID: uuid.New(), UserID: uuid.New(), Status: repo.OrderPendingPayment,
		TotalCents: 94_500, DiscountCents: 10_500, CouponCode: &code,
	}
	charge := repo.Payment{
		ID: uuid.New(), OrderID: order.ID, Provider: "pix",
		Status: repo.PaymentPending, AmountCents: order.TotalCents,
	}
	f := &webhookFixture{
		orders:  &memSettleOrders{rows: map[uuid.UUID]repo.Order{order.ID: order}},
		charges: &memSettleCharges{rows: map[uuid.UUID]repo.Payment{order.ID: charge}},
		coupons: &memSettleCoupons{
			coupons: map[string]repo.Coupon{code: {ID: uuid.New(), Code: code, Type: "percentage", Percent: 10, Active: true}},
			usages:  map[uuid.UUID]bool{},
		},
		events: &memEventStore{},
		pix:    Pix{APIKey: "pix-key"},
		order:  order,
	}

	mr := miniredis.RunT(t)
	replay := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = replay.Close() })

	wh := Webhook{
		Providers: map[string]Provider{"pix": f.pix},
		Runner:    memRunner{stores: SettleStores{Orders: f.orders, Payments: f.charges, Coupons: f.coupons}},
		Replay:    replay,
		ReplayTTL: time.Hour,
		Bus:       &events.Bus{Store: f.events},
	}
	router := chi.NewRouter()
	router.Post("/api/v1/webhooks/payment/{provider}", wh.Handle)
	f.server = router
	return f
}

func (f *webhookFixture) post(t *testing.T, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment/pix", bytes.NewReader(body))
	if sign {
		req.Header.Set("X-Pix-Signature", f.pix.SignBody(body))
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func paidBody(t *testing.T, orderID uuid.UUID, amount int64, nonce int) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"orderId":     orderID.String(),
		"amountCents": amount,
		"status":      "PAID",
		"nonce":       fmt.Sprintf("n-%d", nonce),
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestWebhookSettlesOrderAndCoupon(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.post(t, paidBody(t, f.order.ID, 94_500, 1), true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if f.orders.rows[f.order.ID].Status != repo.OrderPaid {
		t.Fatalf("order status = %q", f.orders.rows[f.order.ID].Status)
	}
	if f.charges.rows[f.order.ID].Status != repo.PaymentPaid {
		t.Fatalf("charge status = %q", f.charges.rows[f.order.ID].Status)
	}
	if f.coupons.increments != 1 {
		t.Fatalf("coupon settled %d times, want 1", f.coupons.increments)
	}
	if len(f.events.rows) != 1 || f.events.rows[0].Topic != events.TopicOrderPaid {
		t.Fatalf("events = %+v", f.events.rows)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.post(t, paidBody(t, f.order.ID, 94_500, 1), false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.orders.rows[f.order.ID].Status != repo.OrderPendingPayment {
		t.Fatal("unsigned webhook must not settle")
	}
}

func TestWebhookRejectsReplay(t *testing.T) {
	f := newWebhookFixture(t)
	body := paidBody(t, f.order.ID, 94_500, 1)
	if rec := f.post(t, body, true); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := f.post(t, body, true); rec.Code != http.StatusConflict {
		t.Fatalf("replay status = %d", rec.Code)
	}
	if f.coupons.increments != 1 {
		t.Fatalf("coupon settled %d times after replay", f.coupons.increments)
	}
}

func TestWebhookSecondNoticeDoesNotDoubleSettle(t *testing.T) {
	f := newWebhookFixture(t)
	if rec := f.post(t, paidBody(t, f.order.ID, 94_500, 1), true); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	// Different body, same semantic notice: replay guard misses, the
	// status guard must still hold.
	if rec := f.post(t, paidBody(t, f.order.ID, 94_500, 2), true); rec.Code != http.StatusNoContent {
		t.Fatalf("second status = %d", rec.Code)
	}
	if f.coupons.increments != 1 {
		t.Fatalf("coupon settled %d times, want 1", f.coupons.increments)
	}
}

func TestWebhookAmountMismatch(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.post(t, paidBody(t, f.order.ID, 10_000, 1), true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.orders.rows[f.order.ID].Status != repo.OrderPendingPayment {
		t.Fatal("mismatched amount must not settle")
	}
}

func TestWebhookFailureCancelsPendingOrder(t *testing.T) {
	f := newWebhookFixture(t)
	body, _ := json.Marshal(map[string]any{
		"orderId":     f.order.ID.String(),
		"amountCents": f.order.TotalCents,
		"status":      "FAILED",
	})
	rec := f.post(t, body, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.orders.rows[f.order.ID].Status != repo.OrderCancelled {
		t.Fatalf("order status = %q", f.orders.rows[f.order.ID].Status)
	}
	if len(f.events.rows) != 2 {
		t.Fatalf("events = %d, want payment.failed + order.cancelled", len(f.events.rows))
	}
}

func TestCardGatewaySignatureRoundTrip(t *testing.T) {
	g := CardGateway{Key: "k", Secret: "secret"}
	orderID := uuid.New().String()
	body, _ := json.Marshal(map[string]any{
		"orderId":     orderID,
		"status":      "approved",
		"amountCents": "94500",
		"signature":   g.Sign(orderID, "approved", "94500"),
	})
	result, err := g.VerifyWebhook(nil, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || result.Status != "PAID" || result.AmountCents != 94_500 {
		t.Fatalf("result = %+v", result)
	}

	tampered, _ := json.Marshal(map[string]any{
		"orderId":     orderID,
		"status":      "approved",
		"amountCents": "94500",
		"signature":   g.Sign(orderID, "approved", "1"),
	})
	result, _ = g.VerifyWebhook(nil, tampered)
	if result.Valid {
		t.Fatal("tampered payload must not verify")
	}
}
