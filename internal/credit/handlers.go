package credit

import (
	"errors"
	"net/http"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/pricing"
)

// Handler exposes the financing simulation endpoint.
type Handler struct {
	Sim             *Simulator
	MaxInstallments int
}

type simulateRequest struct {
	Amount             float64 `json:"amount" validate:"gte=0"`
	DownPaymentPercent float64 `json:"downPaymentPercent" validate:"gte=0,lte=100"`
	Months             int     `json:"months" validate:"gte=1"`
}

// Simulate quotes a financing plan for the requested amount.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	if h.Sim == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "credit simulator not configured", nil)
		return
	}
	var req simulateRequest
	if !common.DecodeAndValidate(w, r, &req) {
		return
	}
	if h.MaxInstallments > 0 && req.Months > h.MaxInstallments {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "installment count above limit", nil)
		return
	}
	result, err := h.Sim.Simulate(r.Context(), req.Amount, req.DownPaymentPercent, req.Months)
	if err != nil {
		if errors.Is(err, ErrNegativeAmount) || errors.Is(err, pricing.ErrInvalidInstallments) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to simulate credit", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
