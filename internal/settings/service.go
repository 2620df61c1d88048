// Package settings serves the single-row financing configuration used
// across catalog display, cart quotes and checkout.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

const cacheKey = "loja:settings:installments"

// Store is the persistence surface for installment settings.
type Store interface {
	GetInstallments(ctx context.Context) (repo.InstallmentSettings, error)
	UpdateInstallments(ctx context.Context, s repo.InstallmentSettings) (repo.InstallmentSettings, error)
}

// Defaults seeds settings when the database row is absent.
type Defaults struct {
	MaxInstallments  int
	BaseMonthlyRate  float64
	FloorMonthlyRate float64
	RateStepPercent  float64
	RampThreshold    float64
	MinPurchaseCents int64
}

// Service reads installment settings through a short Redis cache.
type Service struct {
	Store    Store
	Redis    *redis.Client
	CacheTTL time.Duration
	Defaults Defaults
}

// Installments returns the live financing settings. A missing row falls
// back to the configured defaults so a fresh install still prices carts.
func (s *Service) Installments(ctx context.Context) (repo.InstallmentSettings, error) {
	if s.Redis != nil {
		if data, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached repo.InstallmentSettings
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}
	loaded, err := s.Store.GetInstallments(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.defaults(), nil
		}
		return repo.InstallmentSettings{}, err
	}
	s.cache(ctx, loaded)
	return loaded, nil
}

// Update persists new settings and refreshes the cache.
func (s *Service) Update(ctx context.Context, in repo.InstallmentSettings) (repo.InstallmentSettings, error) {
	updated, err := s.Store.UpdateInstallments(ctx, in)
	if err != nil {
		return repo.InstallmentSettings{}, err
	}
	s.cache(ctx, updated)
	return updated, nil
}

// Ramp converts the stored settings into the pricing rate ramp.
func Ramp(s repo.InstallmentSettings) pricing.RateRamp {
	return pricing.RateRamp{
		BasePercent:      s.MonthlyRatePercent,
		FloorPercent:     s.RateFloorPercent,
		StepPercent:      s.RateStepPercent,
		ThresholdPercent: s.RateThresholdPercent,
	}
}

func (s *Service) defaults() repo.InstallmentSettings {
	return repo.InstallmentSettings{
		MaxInstallments:      int32(s.Defaults.MaxInstallments),
		MonthlyRatePercent:   s.Defaults.BaseMonthlyRate,
		MinPurchaseCents:     s.Defaults.MinPurchaseCents,
		Enabled:              true,
		RateFloorPercent:     s.Defaults.FloorMonthlyRate,
		RateStepPercent:      s.Defaults.RateStepPercent,
		RateThresholdPercent: s.Defaults.RampThreshold,
	}
}

func (s *Service) cache(ctx context.Context, v repo.InstallmentSettings) {
	if s.Redis == nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.Redis.Set(ctx, cacheKey, data, ttl).Err()
	}
}

// Handler exposes the back-office settings endpoints.
type Handler struct {
	Svc *Service
}

type updatePayload struct {
	MaxInstallments      int32   `json:"maxInstallments" validate:"gte=1,lte=48"`
	MonthlyRatePercent   float64 `json:"monthlyRatePercent" validate:"gte=0"`
	MinPurchaseCents     int64   `json:"minPurchaseCents" validate:"gte=0"`
	Enabled              bool    `json:"enabled"`
	RateFloorPercent     float64 `json:"rateFloorPercent" validate:"gte=0"`
	RateStepPercent      float64 `json:"rateStepPercent" validate:"gte=0"`
	RateThresholdPercent float64 `json:"rateThresholdPercent" validate:"gte=0,lte=100"`
}

// Get handles GET /api/v1/admin/settings/installments.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.Svc.Installments(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": current})
}

// Update handles PUT /api/v1/admin/settings/installments.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var payload updatePayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	if payload.RateFloorPercent > payload.MonthlyRatePercent {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "rate floor above base rate", nil)
		return
	}
	updated, err := h.Svc.Update(r.Context(), repo.InstallmentSettings{
		MaxInstallments:      payload.MaxInstallments,
		MonthlyRatePercent:   payload.MonthlyRatePercent,
		MinPurchaseCents:     payload.MinPurchaseCents,
		Enabled:              payload.Enabled,
		RateFloorPercent:     payload.RateFloorPercent,
		RateStepPercent:      payload.RateStepPercent,
		RateThresholdPercent: payload.RateThresholdPercent,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}
