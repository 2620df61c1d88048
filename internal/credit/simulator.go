package credit

import (
	"context"
	"errors"

	"github.com/lojamovel/backend-loja/internal/pricing"
)

// Simulation is a full financing quote for a requested purchase amount.
type Simulation struct {
	Approval           Approval `json:"approval"`
	DownPaymentPercent float64  `json:"downPaymentPercent"`
	DownPayment        float64  `json:"downPayment"`
	FinancedPrincipal  float64  `json:"financedPrincipal"`
	MonthlyRatePercent float64  `json:"monthlyRatePercent"`
	InstallmentCount   int      `json:"installmentCount"`
	InstallmentAmount  float64  `json:"installmentAmount"`
	TotalPayable       float64  `json:"totalPayable"`
	FormattedAmount    string   `json:"formattedInstallment"`
}

// Simulator chains approval, down payment and installment pricing.
type Simulator struct {
	Approver Approver
	Ramp     pricing.RateRamp
}

// Simulate quotes financing for the given amount. The down payment is a
// percentage of the post-approval remainder, and the interest rate comes
// from the down-payment ramp.
func (s *Simulator) Simulate(ctx context.Context, amount, downPaymentPercent float64, months int) (Simulation, error) {
	if s == nil || s.Approver == nil {
		return Simulation{}, errors.New("credit simulator not configured")
	}
	if downPaymentPercent < 0 || downPaymentPercent > 100 {
		return Simulation{}, errors.New("credit: down payment percent out of range")
	}
	approval, err := s.Approver.Approve(ctx, amount)
	if err != nil {
		return Simulation{}, err
	}
	downPayment := approval.RemainingAmount * downPaymentPercent / 100
	financed := amount - downPayment
	rate := s.Ramp.Rate(downPaymentPercent)
	installment, err := pricing.Installment(financed, months, rate)
	if err != nil {
		return Simulation{}, err
	}
	return Simulation{
		Approval:           approval,
		DownPaymentPercent: downPaymentPercent,
		DownPayment:        downPayment,
		FinancedPrincipal:  financed,
		MonthlyRatePercent: rate,
		InstallmentCount:   months,
		InstallmentAmount:  installment,
		TotalPayable:       installment * float64(months),
		FormattedAmount:    pricing.FormatBRL(installment),
	}, nil
}
