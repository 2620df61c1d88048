package coupon

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// Handler exposes administrative coupon management endpoints.
type Handler struct {
	Coupons repo.Coupons
	Svc     *Service
}

type couponPayload struct {
	Code             string     `json:"code" validate:"required"`
	Type             string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue    float64    `json:"discountValue" validate:"gte=0"`
	ValidFrom        *time.Time `json:"validFrom"`
	ValidUntil       *time.Time `json:"validUntil"`
	MaxUses          *int32     `json:"maxUses"`
	MinPurchaseCents *int64     `json:"minPurchaseCents"`
	Active           *bool      `json:"active"`
}

type previewRequest struct {
	Code              string `json:"code" validate:"required"`
	PurchaseBaseCents int64  `json:"purchaseBaseCents" validate:"gte=0"`
}

// Create inserts a new coupon rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	stored, err := h.Coupons.Create(r.Context(), modelFromPayload(payload))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": stored})
}

// Update mutates an existing coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload couponPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	payload.Code = code
	stored, err := h.Coupons.Update(r.Context(), modelFromPayload(payload))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stored})
}

// List returns stored coupons for the back-office table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	coupons, err := h.Coupons.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// Preview returns the simulated discount for a code without persisting state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req previewRequest
	if !common.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, req.PurchaseBaseCents)
	if err != nil {
		if errors.Is(err, ErrUnknownCode) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		if reason := RejectionCode(err); reason != "" {
			common.JSONError(w, http.StatusUnprocessableEntity, "NOT_APPLICABLE", err.Error(),
				map[string]string{"reason": reason})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func modelFromPayload(p couponPayload) repo.Coupon {
	c := repo.Coupon{
		Code:             NormalizeCode(p.Code),
		Type:             strings.TrimSpace(p.Type),
		ValidFrom:        p.ValidFrom,
		ValidUntil:       p.ValidUntil,
		MaxUses:          p.MaxUses,
		MinPurchaseCents: p.MinPurchaseCents,
		Active:           true,
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	switch DiscountType(c.Type) {
	case Percentage:
		c.Percent = p.DiscountValue
	case Fixed:
		c.AmountCents = pricing.ToCents(p.DiscountValue)
	}
	return c
}
