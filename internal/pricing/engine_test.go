package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestInstallmentZeroRate(t *testing.T) {
	cases := []struct {
		principal float64
		count     int
	}{
		{0, 1},
		{100, 1},
		{945, 12},
		{1999.90, 10},
	}
	for _, tc := range cases {
		got, err := Installment(tc.principal, tc.count, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := tc.principal / float64(tc.count)
		if got != want {
			t.Fatalf("Installment(%v, %d, 0) = %v, want %v", tc.principal, tc.count, got, want)
		}
	}
}

func TestInstallmentIncreasingInRate(t *testing.T) {
	prev := 0.0
	for _, rate := range []float64{0, 0.5, 1.25, 1.99, 3.5} {
		got, err := Installment(1000, 12, rate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got <= prev {
			t.Fatalf("installment at rate %v = %v, not above %v", rate, got, prev)
		}
		prev = got
	}
}

func TestInstallmentTotalCoversPrincipal(t *testing.T) {
	for _, rate := range []float64{0, 0.99, 1.99, 4.5} {
		for _, count := range []int{1, 2, 6, 12, 24} {
			got, err := Installment(945, count, rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			total := got * float64(count)
			if rate == 0 {
				if math.Abs(total-945) > 1e-9 {
					t.Fatalf("zero-rate total %v, want 945", total)
				}
				continue
			}
			if total <= 945 {
				t.Fatalf("total %v at rate %v count %d does not exceed principal", total, rate, count)
			}
		}
	}
}

func TestInstallmentAnnuityValue(t *testing.T) {
	got, err := Installment(945, 12, 1.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	factor := math.Pow(1.0199, 12)
	want := 945 * factor * 0.0199 / (factor - 1)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Installment(945, 12, 1.99) = %v, want %v", got, want)
	}
}

func TestInstallmentRejectsInvalidInput(t *testing.T) {
	if _, err := Installment(100, 0, 1.99); !errors.Is(err, ErrInvalidInstallments) {
		t.Fatalf("expected ErrInvalidInstallments, got %v", err)
	}
	if _, err := Installment(-1, 3, 1.99); !errors.Is(err, ErrNegativePrincipal) {
		t.Fatalf("expected ErrNegativePrincipal, got %v", err)
	}
	if _, err := Installment(100, 3, -0.5); !errors.Is(err, ErrNegativeRate) {
		t.Fatalf("expected ErrNegativeRate, got %v", err)
	}
}

func TestRateRampBounds(t *testing.T) {
	prev := math.Inf(1)
	for dp := 0.0; dp <= 40; dp += 0.5 {
		rate := InterestRateForDownPayment(dp)
		if rate < 1.25 || rate > 1.99 {
			t.Fatalf("rate %v for down payment %v outside [1.25, 1.99]", rate, dp)
		}
		if rate > prev {
			t.Fatalf("rate increased from %v to %v at down payment %v", prev, rate, dp)
		}
		prev = rate
	}
	if got := InterestRateForDownPayment(10); got != 1.99 {
		t.Fatalf("rate at threshold = %v, want 1.99", got)
	}
	if got := InterestRateForDownPayment(30); got != 1.25 {
		t.Fatalf("rate at 30%% down = %v, want floor 1.25", got)
	}
}

func TestComposeClampsDiscount(t *testing.T) {
	s := Compose(100_000, 5_000, 10_500)
	if s.Total != 94_500 {
		t.Fatalf("total = %d, want 94500", s.Total)
	}
	clamped := Compose(10_000, 0, 15_000)
	if clamped.Discount != 10_000 || clamped.Total != 0 {
		t.Fatalf("discount %d total %d, want discount clamped to base and zero total", clamped.Discount, clamped.Total)
	}
	negative := Compose(10_000, 2_000, -500)
	if negative.Discount != 0 || negative.Total != 12_000 {
		t.Fatalf("negative discount not normalised: %+v", negative)
	}
}

func TestCheckoutScenario(t *testing.T) {
	// subtotal 1000 + freight 50, 10% off the freight-inclusive base,
	// remainder financed in 12 installments at 1.99%.
	base := Cents(100_000 + 5_000)
	discount := base / 10
	s := Compose(100_000, 5_000, discount)
	if s.Total != 94_500 {
		t.Fatalf("total = %d, want 94500", s.Total)
	}
	amount, err := Installment(FromCents(s.Total), 12, 1.99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount*12 <= 945 {
		t.Fatalf("financed total %v does not exceed principal", amount*12)
	}
}

func TestOptionsSkipNothingWithinRange(t *testing.T) {
	opts := Options(1200, 6, 1.99)
	if len(opts) != 6 {
		t.Fatalf("expected 6 options, got %d", len(opts))
	}
	if opts[0].Count != 1 || opts[5].Count != 6 {
		t.Fatalf("unexpected option counts: %+v", opts)
	}
	for i := 1; i < len(opts); i++ {
		if opts[i].Amount >= opts[i-1].Amount {
			t.Fatalf("per-installment amount should shrink as count grows: %+v", opts)
		}
	}
}
