// Package cart manages the pre-checkout basket: product lines, the
// applied coupon and the running totals quote.
package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/freight"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrCartNotFound is returned for unknown cart ids.
	ErrCartNotFound = errors.New("cart: not found")
	// ErrProductUnavailable is returned when a product is inactive or unknown.
	ErrProductUnavailable = errors.New("cart: product unavailable")
	// ErrInsufficientStock is returned when the requested quantity exceeds stock.
	ErrInsufficientStock = errors.New("cart: insufficient stock")
)

// Store is the cart persistence surface.
type Store interface {
	Create(ctx context.Context, userID *uuid.UUID) (repo.Cart, error)
	Get(ctx context.Context, id uuid.UUID) (repo.Cart, error)
	SetCoupon(ctx context.Context, id uuid.UUID, code *string) error
	UpsertItem(ctx context.Context, item repo.CartItem) (repo.CartItem, error)
	UpdateItemQty(ctx context.Context, cartID, itemID uuid.UUID, qty int32) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]repo.CartItem, error)
}

// ProductSource resolves products when adding lines.
type ProductSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (repo.Product, error)
}

// SettingsSource supplies the live financing configuration.
type SettingsSource interface {
	Installments(ctx context.Context) (repo.InstallmentSettings, error)
}

// View is a cart with its lines and display totals.
type View struct {
	repo.Cart
	Items []repo.CartItem `json:"items"`
	Quote Quote           `json:"quote"`
}

// Quote is the running totals block shown on the cart page.
type Quote struct {
	Summary            pricing.Summary  `json:"summary"`
	TotalFormatted     string           `json:"totalFormatted"`
	CouponCode         string           `json:"couponCode,omitempty"`
	CouponRejection    string           `json:"couponRejection,omitempty"`
	Freight            *freight.Quote   `json:"freight,omitempty"`
	InstallmentOptions []pricing.Option `json:"installmentOptions,omitempty"`
}

// Service composes cart persistence with coupon and freight quoting.
type Service struct {
	Carts    Store
	Products ProductSource
	Coupons  *coupon.Service
	Freight  freight.Provider
	Settings SettingsSource
}

// Create opens a new cart.
func (s *Service) Create(ctx context.Context, userID *uuid.UUID) (repo.Cart, error) {
	return s.Carts.Create(ctx, userID)
}

// AddItem resolves the product and adds (or bumps) a cart line.
func (s *Service) AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int32) (repo.CartItem, error) {
	if _, err := s.get(ctx, cartID); err != nil {
		return repo.CartItem{}, err
	}
	product, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.CartItem{}, ErrProductUnavailable
		}
		return repo.CartItem{}, err
	}
	if !product.Active {
		return repo.CartItem{}, ErrProductUnavailable
	}
	if qty < 1 || qty > product.StockQty {
		return repo.CartItem{}, ErrInsufficientStock
	}
	return s.Carts.UpsertItem(ctx, repo.CartItem{
		CartID:         cartID,
		ProductID:      product.ID,
		Title:          product.Title,
		Qty:            qty,
		UnitPriceCents: product.PriceCents,
		SubtotalCents:  int64(qty) * product.PriceCents,
	})
}

// UpdateItem changes a line's quantity; zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, qty int32) error {
	if _, err := s.get(ctx, cartID); err != nil {
		return err
	}
	if qty <= 0 {
		return s.Carts.RemoveItem(ctx, cartID, itemID)
	}
	return s.Carts.UpdateItemQty(ctx, cartID, itemID, qty)
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	if _, err := s.get(ctx, cartID); err != nil {
		return err
	}
	return s.Carts.RemoveItem(ctx, cartID, itemID)
}

// ApplyCoupon validates the code against the cart's current base and
// stores it. Validation failures surface as coupon sentinel errors.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string, cep string) error {
	cart, err := s.get(ctx, cartID)
	if err != nil {
		return err
	}
	base, _, err := s.couponBase(ctx, cart.ID, cep)
	if err != nil {
		return err
	}
	normalized := coupon.NormalizeCode(code)
	if _, err := s.Coupons.Preview(ctx, normalized, base); err != nil {
		return err
	}
	return s.Carts.SetCoupon(ctx, cartID, &normalized)
}

// RemoveCoupon clears the applied code.
func (s *Service) RemoveCoupon(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.get(ctx, cartID); err != nil {
		return err
	}
	return s.Carts.SetCoupon(ctx, cartID, nil)
}

// GetView loads the cart with its lines and a fresh totals quote. An
// applied coupon that no longer validates is reported, not dropped.
func (s *Service) GetView(ctx context.Context, cartID uuid.UUID, cep string) (View, error) {
	cart, err := s.get(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	items, err := s.Carts.ListItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.SubtotalCents
	}

	quote := Quote{}
	var freightCents int64
	if cep != "" && s.Freight != nil {
		fq, err := s.Freight.Quote(ctx, cep, subtotal)
		if err != nil {
			return View{}, err
		}
		quote.Freight = &fq
		freightCents = fq.AmountCents
	}

	var discount int64
	if cart.CouponCode != nil {
		quote.CouponCode = *cart.CouponCode
		preview, err := s.Coupons.Preview(ctx, *cart.CouponCode, subtotal+freightCents)
		switch {
		case err == nil:
			discount = preview.DiscountCents
		case errors.Is(err, coupon.ErrUnknownCode):
			quote.CouponRejection = "unknown_code"
		default:
			if reason := coupon.RejectionCode(err); reason != "" {
				quote.CouponRejection = reason
			} else {
				return View{}, err
			}
		}
	}

	quote.Summary = pricing.Compose(subtotal, freightCents, discount)
	quote.TotalFormatted = pricing.FormatCents(quote.Summary.Total)

	if s.Settings != nil {
		if settings, err := s.Settings.Installments(ctx); err == nil &&
			settings.Enabled && quote.Summary.Total >= settings.MinPurchaseCents {
			quote.InstallmentOptions = pricing.Options(
				pricing.FromCents(quote.Summary.Total),
				int(settings.MaxInstallments),
				settings.MonthlyRatePercent,
			)
		}
	}

	return View{Cart: cart, Items: items, Quote: quote}, nil
}

func (s *Service) get(ctx context.Context, cartID uuid.UUID) (repo.Cart, error) {
	cart, err := s.Carts.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Cart{}, ErrCartNotFound
		}
		return repo.Cart{}, err
	}
	return cart, nil
}

func (s *Service) couponBase(ctx context.Context, cartID uuid.UUID, cep string) (int64, int64, error) {
	items, err := s.Carts.ListItems(ctx, cartID)
	if err != nil {
		return 0, 0, err
	}
	var subtotal int64
	for _, it := range items {
		subtotal += it.SubtotalCents
	}
	var freightCents int64
	if cep != "" && s.Freight != nil {
		fq, err := s.Freight.Quote(ctx, cep, subtotal)
		if err != nil {
			return 0, 0, err
		}
		freightCents = fq.AmountCents
	}
	return subtotal + freightCents, freightCents, nil
}
