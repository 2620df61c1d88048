package payment

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/brdoc"
	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes charge creation and status endpoints.
type Handler struct {
	Svc *Service
}

type createChargePayload struct {
	OrderID string `json:"orderId" validate:"required,uuid4"`
	Method  string `json:"method" validate:"required,oneof=pix card"`
	// MM/YY, required for card charges. The gateway holds the PAN; the
	// storefront only pre-checks the expiry the customer typed.
	CardExpiry string `json:"cardExpiry" validate:"omitempty,len=5"`
}

// CreateCharge handles POST /api/v1/payments/charge.
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	var payload createChargePayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	if payload.Method == "card" && payload.CardExpiry != "" && !brdoc.ValidCardExpiry(payload.CardExpiry, time.Now()) {
		common.JSONError(w, http.StatusUnprocessableEntity, "CARD_EXPIRED", "card expiry is invalid or in the past", nil)
		return
	}
	charge, err := h.Svc.CreateCharge(r.Context(), orderID, payload.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": charge})
}

// Status handles GET /api/v1/payments/{orderId}/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	status, err := h.Svc.Status(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": status}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrOrderNotPayable):
		common.JSONError(w, http.StatusConflict, "ORDER_NOT_PAYABLE", "order does not accept charges", nil)
	case errors.Is(err, ErrUnknownProvider):
		common.JSONError(w, http.StatusBadRequest, "UNKNOWN_PROVIDER", "unsupported payment method", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment error", nil)
	}
}
