// Package credit implements the financing simulation used by the
// storefront's "compre parcelado" flow: a pluggable approval decision
// followed by down-payment and installment pricing.
package credit

import (
	"context"
	"errors"
)

// ErrNegativeAmount is returned when the requested amount is negative.
var ErrNegativeAmount = errors.New("credit: requested amount must not be negative")

// Approval is the outcome of a credit decision.
type Approval struct {
	RequestedAmount float64 `json:"requestedAmount"`
	ApprovedAmount  float64 `json:"approvedAmount"`
	RemainingAmount float64 `json:"remainingAmount"`
	ApprovedPercent float64 `json:"approvedPercentage"`
}

// Approver decides how much of a requested amount gets financed.
// Implementations may call out to a scoring service; the simulator below
// is deterministic.
type Approver interface {
	Approve(ctx context.Context, requestedAmount float64) (Approval, error)
}

// FixedPercentApprover approves a flat share of every request. It stands
// in for a real underwriting model and should be replaced wholesale, not
// tuned.
type FixedPercentApprover struct {
	Percent float64
}

// Approve implements Approver.
func (a FixedPercentApprover) Approve(_ context.Context, requestedAmount float64) (Approval, error) {
	if requestedAmount < 0 {
		return Approval{}, ErrNegativeAmount
	}
	approved := requestedAmount * a.Percent / 100
	return Approval{
		RequestedAmount: requestedAmount,
		ApprovedAmount:  approved,
		RemainingAmount: requestedAmount - approved,
		ApprovedPercent: a.Percent,
	}, nil
}
