package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes customer order endpoints.
type Handler struct {
	Svc *Service
}

// ListMine handles GET /api/v1/orders.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	page, limit := common.ParsePagination(r, 20, 100)
	orders, err := h.Svc.ListMine(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// GetMine handles GET /api/v1/orders/{orderId}.
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.GetMine(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CancelMine handles POST /api/v1/orders/{orderId}/cancel.
func (h *Handler) CancelMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.CancelMine(r.Context(), userID, orderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminHandler exposes the back-office status transition endpoint.
type AdminHandler struct {
	Svc *Service
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=PAID SHIPPED DELIVERED CANCELLED"`
}

// SetStatus handles PATCH /api/v1/admin/orders/{orderId}/status.
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var payload statusPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	updated, err := h.Svc.SetStatus(r.Context(), orderID, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", "status transition not allowed", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
