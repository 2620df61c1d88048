package credit

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lojamovel/backend-loja/internal/pricing"
)

func TestFixedPercentApprover(t *testing.T) {
	approver := FixedPercentApprover{Percent: 90}
	got, err := approver.Approve(context.Background(), 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ApprovedAmount != 1800 {
		t.Fatalf("approved = %v, want 1800", got.ApprovedAmount)
	}
	if got.RemainingAmount != 200 {
		t.Fatalf("remaining = %v, want 200", got.RemainingAmount)
	}
	if got.ApprovedPercent != 90 {
		t.Fatalf("percent = %v, want 90", got.ApprovedPercent)
	}
}

func TestApproverRejectsNegativeAmount(t *testing.T) {
	approver := FixedPercentApprover{Percent: 90}
	if _, err := approver.Approve(context.Background(), -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestSimulateChainsApprovalAndPricing(t *testing.T) {
	sim := &Simulator{
		Approver: FixedPercentApprover{Percent: 90},
		Ramp:     pricing.DefaultRateRamp,
	}
	got, err := sim.Simulate(context.Background(), 2000, 20, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Down payment is 20% of the post-approval remainder (200), not of the total.
	if got.DownPayment != 40 {
		t.Fatalf("down payment = %v, want 40", got.DownPayment)
	}
	if got.FinancedPrincipal != 1960 {
		t.Fatalf("financed = %v, want 1960", got.FinancedPrincipal)
	}
	// 20% down is 10 points over the threshold: 1.99 - 10*0.05 = 1.49.
	if math.Abs(got.MonthlyRatePercent-1.49) > 1e-9 {
		t.Fatalf("rate = %v, want 1.49", got.MonthlyRatePercent)
	}
	want, err := pricing.Installment(1960, 12, got.MonthlyRatePercent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.InstallmentAmount != want {
		t.Fatalf("installment = %v, want %v", got.InstallmentAmount, want)
	}
	if got.TotalPayable <= got.FinancedPrincipal {
		t.Fatal("total payable should exceed the financed principal")
	}
}

func TestSimulateValidatesInput(t *testing.T) {
	sim := &Simulator{Approver: FixedPercentApprover{Percent: 90}, Ramp: pricing.DefaultRateRamp}
	if _, err := sim.Simulate(context.Background(), 1000, 120, 12); err == nil {
		t.Fatal("expected error for down payment above 100%")
	}
	if _, err := sim.Simulate(context.Background(), 1000, 10, 0); !errors.Is(err, pricing.ErrInvalidInstallments) {
		t.Fatalf("expected ErrInvalidInstallments, got %v", err)
	}
}
