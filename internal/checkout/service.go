// Package checkout turns a cart into a priced order. Placement runs in
// one transaction: the pricing breakdown is frozen onto the order row
// and the cart lines are copied verbatim.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/freight"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrCartNotFound is returned for unknown cart ids.
	ErrCartNotFound = errors.New("checkout: cart not found")
	// ErrEmptyCart is returned when placing an order from a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrInstallmentsUnavailable is returned when the requested plan is not offered.
	ErrInstallmentsUnavailable = errors.New("checkout: installment plan unavailable")
)

// TxStores bundles the repositories bound to one transaction.
type TxStores struct {
	Carts   CartStore
	Orders  OrderStore
	Coupons coupon.Querier
}

// Runner opens a transaction and hands the bound stores to fn.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error
}

// CartStore is the cart surface checkout needs.
type CartStore interface {
	Get(ctx context.Context, id uuid.UUID) (repo.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]repo.CartItem, error)
	SetCoupon(ctx context.Context, id uuid.UUID, code *string) error
}

// OrderStore is the order surface checkout needs.
type OrderStore interface {
	Create(ctx context.Context, o repo.Order) (repo.Order, error)
	InsertItem(ctx context.Context, it repo.OrderItem) error
}

// SettingsSource supplies the live financing configuration.
type SettingsSource interface {
	Installments(ctx context.Context) (repo.InstallmentSettings, error)
}

// PgRunner implements Runner over a pgx transaction runner.
type PgRunner struct {
	Tx repo.TxRunner
}

// InTx binds the pgx repositories to one transaction.
func (r PgRunner) InTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error {
	return r.Tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, TxStores{
			Carts:   repo.Carts{DB: tx},
			Orders:  repo.Orders{DB: tx},
			Coupons: repo.Coupons{DB: tx},
		})
	})
}

// Request is a checkout submission.
type Request struct {
	CartID          uuid.UUID
	UserID          uuid.UUID
	CEP             string
	PaymentMethod   string
	Installments    int32
	ShippingAddress json.RawMessage
	Notes           string
}

// Service places orders.
type Service struct {
	Runner   Runner
	Freight  freight.Provider
	Settings SettingsSource
	Bus      *events.Bus
}

// PlaceOrder prices the cart, freezes the order and emits order.created.
// Coupon validation failures abort placement; the storefront re-quotes
// the cart instead of silently dropping the discount.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (repo.Order, error) {
	var placed repo.Order
	err := s.Runner.InTx(ctx, func(ctx context.Context, stores TxStores) error {
		cart, err := stores.Carts.Get(ctx, req.CartID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCartNotFound
			}
			return err
		}
		items, err := stores.Carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var subtotal int64
		for _, it := range items {
			subtotal += it.SubtotalCents
		}

		var freightCents int64
		if s.Freight != nil && req.CEP != "" {
			fq, err := s.Freight.Quote(ctx, req.CEP, subtotal)
			if err != nil {
				return err
			}
			freightCents = fq.AmountCents
		}

		var discount int64
		if cart.CouponCode != nil {
			preview, err := (&coupon.Service{Q: stores.Coupons}).Preview(ctx, *cart.CouponCode, subtotal+freightCents)
			if err != nil {
				return err
			}
			discount = preview.DiscountCents
		}

		summary := pricing.Compose(subtotal, freightCents, discount)

		order := repo.Order{
			UserID:          req.UserID,
			Status:          repo.OrderPendingPayment,
			SubtotalCents:   summary.Subtotal,
			FreightCents:    summary.Freight,
			DiscountCents:   summary.Discount,
			TotalCents:      summary.Total,
			CouponCode:      cart.CouponCode,
			ShippingAddress: req.ShippingAddress,
		}
		if req.PaymentMethod != "" {
			method := req.PaymentMethod
			order.PaymentMethod = &method
		}
		if req.Notes != "" {
			notes := req.Notes
			order.Notes = &notes
		}

		if req.Installments > 1 {
			count, amountCents, err := s.installmentPlan(ctx, summary.Total, req.Installments)
			if err != nil {
				return err
			}
			order.InstallmentCount = &count
			order.InstallmentAmountCents = &amountCents
		}

		placed, err = stores.Orders.Create(ctx, order)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := stores.Orders.InsertItem(ctx, repo.OrderItem{
				OrderID:        placed.ID,
				ProductID:      it.ProductID,
				Title:          it.Title,
				Qty:            it.Qty,
				UnitPriceCents: it.UnitPriceCents,
				SubtotalCents:  it.SubtotalCents,
			}); err != nil {
				return err
			}
		}
		// The coupon is now carried by the order; settlement happens on payment.
		return stores.Carts.SetCoupon(ctx, cart.ID, nil)
	})
	if err != nil {
		return repo.Order{}, err
	}

	if s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicOrderCreated, placed.ID, map[string]any{
			"orderId":    placed.ID.String(),
			"userId":     placed.UserID.String(),
			"totalCents": placed.TotalCents,
		})
	}
	return placed, nil
}

func (s *Service) installmentPlan(ctx context.Context, totalCents int64, requested int32) (int32, int64, error) {
	if s.Settings == nil {
		return 0, 0, ErrInstallmentsUnavailable
	}
	settings, err := s.Settings.Installments(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !settings.Enabled || requested > settings.MaxInstallments || totalCents < settings.MinPurchaseCents {
		return 0, 0, ErrInstallmentsUnavailable
	}
	amount, err := pricing.Installment(pricing.FromCents(totalCents), int(requested), settings.MonthlyRatePercent)
	if err != nil {
		return 0, 0, fmt.Errorf("checkout: price installments: %w", err)
	}
	return requested, pricing.ToCents(amount), nil
}
