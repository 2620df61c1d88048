package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/freight"
	"github.com/lojamovel/backend-loja/internal/repo"
)

type memStore struct {
	carts map[uuid.UUID]repo.Cart
	items map[uuid.UUID][]repo.CartItem
}

func newMemStore() *memStore {
	return &memStore{carts: map[uuid.UUID]repo.Cart{}, items: map[uuid.UUID][]repo.CartItem{}}
}

func (m *memStore) Create(_ context.Context, userID *uuid.UUID) (repo.Cart, error) {
	c := repo.Cart{ID: uuid.New(), UserID: userID}
	m.carts[c.ID] = c
	return c, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (repo.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return repo.Cart{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memStore) SetCoupon(_ context.Context, id uuid.UUID, code *string) error {
	c := m.carts[id]
	c.CouponCode = code
	m.carts[id] = c
	return nil
}

func (m *memStore) UpsertItem(_ context.Context, item repo.CartItem) (repo.CartItem, error) {
	for i, existing := range m.items[item.CartID] {
		if existing.ProductID == item.ProductID {
			existing.Qty += item.Qty
			existing.SubtotalCents = int64(existing.Qty) * existing.UnitPriceCents
			m.items[item.CartID][i] = existing
			return existing, nil
		}
	}
	item.ID = uuid.New()
	m.items[item.CartID] = append(m.items[item.CartID], item)
	return item, nil
}

func (m *memStore) UpdateItemQty(_ context.Context, cartID, itemID uuid.UUID, qty int32) error {
	for i, it := range m.items[cartID] {
		if it.ID == itemID {
			it.Qty = qty
			it.SubtotalCents = int64(qty) * it.UnitPriceCents
			m.items[cartID][i] = it
		}
	}
	return nil
}

func (m *memStore) RemoveItem(_ context.Context, cartID, itemID uuid.UUID) error {
	kept := m.items[cartID][:0]
	for _, it := range m.items[cartID] {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	m.items[cartID] = kept
	return nil
}

func (m *memStore) ListItems(_ context.Context, cartID uuid.UUID) ([]repo.CartItem, error) {
	return m.items[cartID], nil
}

type memProducts map[uuid.UUID]repo.Product

func (m memProducts) GetByID(_ context.Context, id uuid.UUID) (repo.Product, error) {
	p, ok := m[id]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

type memCoupons map[string]repo.Coupon

func (m memCoupons) GetByCode(_ context.Context, code string) (repo.Coupon, error) {
	c, ok := m[code]
	if !ok {
		return repo.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m memCoupons) GetByCodeForUpdate(ctx context.Context, code string) (repo.Coupon, error) {
	return m.GetByCode(ctx, code)
}

func (m memCoupons) GetUsageByOrder(context.Context, uuid.UUID, uuid.UUID) (repo.CouponUsage, error) {
	return repo.CouponUsage{}, pgx.ErrNoRows
}

func (m memCoupons) InsertUsage(context.Context, uuid.UUID, uuid.UUID, *uuid.UUID, int64) error {
	return nil
}

func (m memCoupons) IncrementUsedCount(context.Context, uuid.UUID) error { return nil }

type fixedSettings struct{ s repo.InstallmentSettings }

func (f fixedSettings) Installments(context.Context) (repo.InstallmentSettings, error) {
	return f.s, nil
}

func testCartService(coupons memCoupons, products memProducts) (*Service, *memStore) {
	store := newMemStore()
	svc := &Service{
		Carts:    store,
		Products: products,
		Coupons:  &coupon.Service{Q: coupons},
		Freight:  freight.TableProvider{FlatCents: 5_000},
		Settings: fixedSettings{s: repo.InstallmentSettings{
			MaxInstallments:    12,
			MonthlyRatePercent: 1.99,
			MinPurchaseCents:   10_000,
			Enabled:            true,
		}},
	}
	return svc, store
}

func seedProduct(products memProducts, priceCents int64, stock int32) repo.Product {
	p := repo.Product{ID: uuid.New(), Slug: "galaxy-x", Title: "Galaxy X", PriceCents: priceCents, StockQty: stock, Active: true}
	products[p.ID] = p
	return p
}

func TestAddItemFreezesUnitPrice(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 100_000, 5)
	svc, _ := testCartService(memCoupons{}, products)

	cart, err := svc.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	item, err := svc.AddItem(context.Background(), cart.ID, p.ID, 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.UnitPriceCents != 100_000 || item.SubtotalCents != 200_000 {
		t.Fatalf("item = %+v", item)
	}
}

func TestAddItemChecksStock(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 100_000, 1)
	svc, _ := testCartService(memCoupons{}, products)

	cart, _ := svc.Create(context.Background(), nil)
	if _, err := svc.AddItem(context.Background(), cart.ID, p.ID, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 100_000, 5)
	p.Active = false
	products[p.ID] = p
	svc, _ := testCartService(memCoupons{}, products)

	cart, _ := svc.Create(context.Background(), nil)
	if _, err := svc.AddItem(context.Background(), cart.ID, p.ID, 1); !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestGetViewComposesCheckoutScenario(t *testing.T) {
	// R$ 1.000,00 subtotal + R$ 50,00 freight, 10% coupon on the
	// freight-inclusive base: total 945_00.
	products := memProducts{}
	p := seedProduct(products, 100_000, 5)
	coupons := memCoupons{"DEZ10": {ID: uuid.New(), Code: "DEZ10", Type: "percentage", Percent: 10, Active: true}}
	svc, _ := testCartService(coupons, products)

	ctx := context.Background()
	cart, _ := svc.Create(ctx, nil)
	if _, err := svc.AddItem(ctx, cart.ID, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.ApplyCoupon(ctx, cart.ID, "dez10", "01310100"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	view, err := svc.GetView(ctx, cart.ID, "01310100")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	q := view.Quote
	if q.Summary.Subtotal != 100_000 || q.Summary.Freight != 5_000 {
		t.Fatalf("summary = %+v", q.Summary)
	}
	if q.Summary.Discount != 10_500 {
		t.Fatalf("discount = %d, want 10500", q.Summary.Discount)
	}
	if q.Summary.Total != 94_500 {
		t.Fatalf("total = %d, want 94500", q.Summary.Total)
	}
	if q.TotalFormatted != "R$ 945,00" {
		t.Fatalf("formatted = %q", q.TotalFormatted)
	}
	if len(q.InstallmentOptions) != 12 {
		t.Fatalf("options = %d, want 12", len(q.InstallmentOptions))
	}
}

func TestGetViewReportsStaleCoupon(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 100_000, 5)
	coupons := memCoupons{"OFF": {ID: uuid.New(), Code: "OFF", Type: "fixed", AmountCents: 1_000, Active: false}}
	svc, store := testCartService(coupons, products)

	ctx := context.Background()
	cart, _ := svc.Create(ctx, nil)
	if _, err := svc.AddItem(ctx, cart.ID, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	code := "OFF"
	if err := store.SetCoupon(ctx, cart.ID, &code); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	view, err := svc.GetView(ctx, cart.ID, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Quote.CouponRejection != "inactive" {
		t.Fatalf("rejection = %q, want inactive", view.Quote.CouponRejection)
	}
	if view.Quote.Summary.Discount != 0 {
		t.Fatalf("discount must be zero for rejected coupon, got %d", view.Quote.Summary.Discount)
	}
}

func TestApplyCouponRejectsBelowMinimum(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 5_000, 5)
	minPurchase := int64(100_000)
	coupons := memCoupons{"BIG": {ID: uuid.New(), Code: "BIG", Type: "percentage", Percent: 10, MinPurchaseCents: &minPurchase, Active: true}}
	svc, _ := testCartService(coupons, products)

	ctx := context.Background()
	cart, _ := svc.Create(ctx, nil)
	if _, err := svc.AddItem(ctx, cart.ID, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := svc.ApplyCoupon(ctx, cart.ID, "BIG", "")
	if coupon.RejectionCode(err) != "below_minimum" {
		t.Fatalf("expected below_minimum rejection, got %v", err)
	}
}

func TestUpdateItemZeroQtyRemovesLine(t *testing.T) {
	products := memProducts{}
	p := seedProduct(products, 100_000, 5)
	svc, _ := testCartService(memCoupons{}, products)

	ctx := context.Background()
	cart, _ := svc.Create(ctx, nil)
	item, err := svc.AddItem(ctx, cart.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.UpdateItem(ctx, cart.ID, item.ID, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	view, err := svc.GetView(ctx, cart.ID, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("items = %d, want 0", len(view.Items))
	}
}
