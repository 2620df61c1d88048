package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/repo"
)

type fakeQuerier struct {
	coupons    map[string]repo.Coupon
	usages     map[uuid.UUID]uuid.UUID // orderID -> couponID
	increments int
}

func newFakeQuerier(coupons ...repo.Coupon) *fakeQuerier {
	q := &fakeQuerier{coupons: map[string]repo.Coupon{}, usages: map[uuid.UUID]uuid.UUID{}}
	for _, c := range coupons {
		q.coupons[c.Code] = c
	}
	return q
}

func (q *fakeQuerier) GetByCode(_ context.Context, code string) (repo.Coupon, error) {
	c, ok := q.coupons[code]
	if !ok {
		return repo.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (q *fakeQuerier) GetByCodeForUpdate(ctx context.Context, code string) (repo.Coupon, error) {
	return q.GetByCode(ctx, code)
}

func (q *fakeQuerier) GetUsageByOrder(_ context.Context, couponID, orderID uuid.UUID) (repo.CouponUsage, error) {
	if got, ok := q.usages[orderID]; ok && got == couponID {
		return repo.CouponUsage{CouponID: couponID, OrderID: orderID}, nil
	}
	return repo.CouponUsage{}, pgx.ErrNoRows
}

func (q *fakeQuerier) InsertUsage(_ context.Context, couponID, orderID uuid.UUID, _ *uuid.UUID, _ int64) error {
	q.usages[orderID] = couponID
	return nil
}

func (q *fakeQuerier) IncrementUsedCount(_ context.Context, couponID uuid.UUID) error {
	q.increments++
	c := q.coupons[couponIDCode(q, couponID)]
	c.UsedCount++
	q.coupons[c.Code] = c
	return nil
}

func couponIDCode(q *fakeQuerier, id uuid.UUID) string {
	for code, c := range q.coupons {
		if c.ID == id {
			return code
		}
	}
	return ""
}

func testService(q Querier) *Service {
	return &Service{Q: q, Now: func() time.Time { return testNow }}
}

func TestPreviewComputesDiscount(t *testing.T) {
	q := newFakeQuerier(repo.Coupon{ID: uuid.New(), Code: "DEZ10", Type: "percentage", Percent: 10, Active: true})
	svc := testService(q)
	result, err := svc.Preview(context.Background(), "dez10", 105_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DiscountCents != 10_500 {
		t.Fatalf("discount = %d, want 10500", result.DiscountCents)
	}
	if result.Formatted != "R$ 105,00" {
		t.Fatalf("formatted = %q", result.Formatted)
	}
}

func TestPreviewUnknownCode(t *testing.T) {
	svc := testService(newFakeQuerier())
	if _, err := svc.Preview(context.Background(), "NADA", 10_000); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
}

func TestPreviewSurfacesRejection(t *testing.T) {
	c := repo.Coupon{ID: uuid.New(), Code: "OFF", Type: "fixed", AmountCents: 1_000, Active: false}
	svc := testService(newFakeQuerier(c))
	if _, err := svc.Preview(context.Background(), "OFF", 10_000); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	c := repo.Coupon{ID: uuid.New(), Code: "OFF", Type: "fixed", AmountCents: 1_000, Active: true}
	q := newFakeQuerier(c)
	svc := testService(q)
	orderID := uuid.New()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.Settle(context.Background(), "off", orderID, &userID, 1_000); err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
	}
	if q.increments != 1 {
		t.Fatalf("used count incremented %d times, want exactly once", q.increments)
	}
}

func TestSettleUnknownCodeIsNoop(t *testing.T) {
	q := newFakeQuerier()
	svc := testService(q)
	if err := svc.Settle(context.Background(), "GONE", uuid.New(), nil, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.increments != 0 {
		t.Fatal("unknown code must not settle anything")
	}
}
