package pricing

import (
	"errors"
	"math"
)

var (
	// ErrInvalidInstallments is returned when the requested installment count is below one.
	ErrInvalidInstallments = errors.New("pricing: installment count must be at least 1")
	// ErrNegativePrincipal is returned when the financed principal is negative.
	ErrNegativePrincipal = errors.New("pricing: principal must not be negative")
	// ErrNegativeRate is returned when the monthly interest rate is negative.
	ErrNegativeRate = errors.New("pricing: monthly rate must not be negative")
)

// Summary aggregates the computed components of an order total.
type Summary struct {
	Subtotal Cents
	Freight  Cents
	Discount Cents
	Total    Cents
}

// Compose combines subtotal, freight and discount into a payable total.
// The discount is clamped so the total never goes negative.
func Compose(subtotal, freight, discount Cents) Summary {
	if subtotal < 0 {
		subtotal = 0
	}
	if freight < 0 {
		freight = 0
	}
	if discount < 0 {
		discount = 0
	}
	base := subtotal + freight
	if discount > base {
		discount = base
	}
	return Summary{
		Subtotal: subtotal,
		Freight:  freight,
		Discount: discount,
		Total:    base - discount,
	}
}

// Installment computes the per-installment payment for the given principal
// using the standard compound-interest annuity formula. The result is left
// unrounded; rounding happens only at display time.
func Installment(principal float64, count int, monthlyRatePercent float64) (float64, error) {
	if count < 1 {
		return 0, ErrInvalidInstallments
	}
	if principal < 0 {
		return 0, ErrNegativePrincipal
	}
	if monthlyRatePercent < 0 {
		return 0, ErrNegativeRate
	}
	i := monthlyRatePercent / 100
	if i == 0 {
		return principal / float64(count), nil
	}
	factor := math.Pow(1+i, float64(count))
	return principal * factor * i / (factor - 1), nil
}

// Option is one entry of an installment plan offer.
type Option struct {
	Count     int     `json:"count"`
	Amount    float64 `json:"amount"`
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted"`
}

// Options enumerates installment offers from 1 up to maxCount for the
// given principal.
func Options(principal float64, maxCount int, monthlyRatePercent float64) []Option {
	if maxCount < 1 {
		return nil
	}
	out := make([]Option, 0, maxCount)
	for n := 1; n <= maxCount; n++ {
		amount, err := Installment(principal, n, monthlyRatePercent)
		if err != nil {
			continue
		}
		out = append(out, Option{
			Count:     n,
			Amount:    amount,
			Total:     amount * float64(n),
			Formatted: FormatBRL(amount),
		})
	}
	return out
}

// RateRamp maps a down-payment percentage to a monthly interest rate.
// Paying more upfront buys the rate down linearly until it hits the floor.
type RateRamp struct {
	BasePercent      float64
	FloorPercent     float64
	StepPercent      float64
	ThresholdPercent float64
}

// DefaultRateRamp mirrors the storefront financing table: 1.99% a month,
// reduced by 0.05 points per 1% of down payment above 10%, floored at 1.25%.
var DefaultRateRamp = RateRamp{
	BasePercent:      1.99,
	FloorPercent:     1.25,
	StepPercent:      0.05,
	ThresholdPercent: 10,
}

// Rate returns the monthly rate for the given down-payment percentage.
// The result is monotonically non-increasing in downPaymentPercent and
// always stays within [FloorPercent, BasePercent].
func (r RateRamp) Rate(downPaymentPercent float64) float64 {
	rate := r.BasePercent
	if downPaymentPercent > r.ThresholdPercent {
		rate -= (downPaymentPercent - r.ThresholdPercent) * r.StepPercent
	}
	if rate < r.FloorPercent {
		rate = r.FloorPercent
	}
	if rate > r.BasePercent {
		rate = r.BasePercent
	}
	return rate
}

// InterestRateForDownPayment applies the default ramp.
func InterestRateForDownPayment(downPaymentPercent float64) float64 {
	return DefaultRateRamp.Rate(downPaymentPercent)
}
