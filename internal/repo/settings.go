package repo

import (
	"context"
)

// Settings persists the single-row financing configuration.
type Settings struct {
	DB DB
}

// GetInstallments loads the financing settings row.
func (r Settings) GetInstallments(ctx context.Context) (InstallmentSettings, error) {
	var s InstallmentSettings
	err := r.DB.QueryRow(ctx, `
		SELECT max_installments, monthly_rate_percent, min_purchase_cents, enabled,
			rate_floor_percent, rate_step_percent, rate_threshold_percent, updated_at
		FROM installment_settings WHERE id = 1`).
		Scan(&s.MaxInstallments, &s.MonthlyRatePercent, &s.MinPurchaseCents, &s.Enabled,
			&s.RateFloorPercent, &s.RateStepPercent, &s.RateThresholdPercent, &s.UpdatedAt)
	return s, err
}

// UpdateInstallments replaces the financing settings row.
func (r Settings) UpdateInstallments(ctx context.Context, s InstallmentSettings) (InstallmentSettings, error) {
	var out InstallmentSettings
	err := r.DB.QueryRow(ctx, `
		UPDATE installment_settings SET max_installments = $1, monthly_rate_percent = $2,
			min_purchase_cents = $3, enabled = $4, rate_floor_percent = $5,
			rate_step_percent = $6, rate_threshold_percent = $7, updated_at = now()
		WHERE id = 1
		RETURNING max_installments, monthly_rate_percent, min_purchase_cents, enabled,
			rate_floor_percent, rate_step_percent, rate_threshold_percent, updated_at`,
		s.MaxInstallments, s.MonthlyRatePercent, s.MinPurchaseCents, s.Enabled,
		s.RateFloorPercent, s.RateStepPercent, s.RateThresholdPercent).
		Scan(&out.MaxInstallments, &out.MonthlyRatePercent, &out.MinPurchaseCents, &out.Enabled,
			&out.RateFloorPercent, &out.RateStepPercent, &out.RateThresholdPercent, &out.UpdatedAt)
	return out, err
}
