package coupon

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/lojamovel/backend-loja/internal/pricing"
)

var (
	// ErrInactive is returned when the coupon has been switched off.
	ErrInactive = errors.New("coupon: not active")
	// ErrNotYetValid is returned before the activation window opens.
	ErrNotYetValid = errors.New("coupon: not yet valid")
	// ErrExpired is returned after the activation window closes.
	ErrExpired = errors.New("coupon: expired")
	// ErrExhausted is returned when the global usage cap has been reached.
	ErrExhausted = errors.New("coupon: usage limit reached")
	// ErrBelowMinimum is returned when the purchase base does not meet the coupon threshold.
	ErrBelowMinimum = errors.New("coupon: minimum purchase not met")
)

// DiscountType discriminates percentage coupons from fixed-value ones.
type DiscountType string

const (
	// Percentage discounts a share of the purchase base.
	Percentage DiscountType = "percentage"
	// Fixed discounts a flat centavo amount.
	Fixed DiscountType = "fixed"
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	Code        string
	Type        DiscountType
	Percent     float64
	AmountCents pricing.Cents
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	MaxUses     *int32
	UsedCount   int32
	MinPurchase *pricing.Cents
	Active      bool
}

// NormalizeCode upper-cases and trims a user-supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the rule against the purchase base at the given instant.
// Checks run in a fixed order and the first failure wins, so callers can
// surface one specific rejection reason.
func (r Rule) Validate(now time.Time, purchaseBase pricing.Cents) error {
	if !r.Active {
		return ErrInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrNotYetValid
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ErrExpired
	}
	if r.MaxUses != nil && r.UsedCount >= *r.MaxUses {
		return ErrExhausted
	}
	if r.MinPurchase != nil && purchaseBase < *r.MinPurchase {
		return ErrBelowMinimum
	}
	return nil
}

// Compute determines the discount in centavos for the given purchase base.
// The base is freight-inclusive; discounts never exceed it.
func Compute(r Rule, purchaseBase pricing.Cents) pricing.Cents {
	if purchaseBase <= 0 {
		return 0
	}
	var discount pricing.Cents
	switch r.Type {
	case Percentage:
		discount = pricing.Cents(math.Round(float64(purchaseBase) * r.Percent / 100))
	case Fixed:
		discount = r.AmountCents
	default:
		return 0
	}
	if discount > purchaseBase {
		discount = purchaseBase
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// RejectionCode maps a validation error to its machine-readable reason.
// Unknown errors map to the empty string.
func RejectionCode(err error) string {
	switch {
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	default:
		return ""
	}
}
