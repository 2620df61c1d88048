package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/freight"
)

// Handler exposes cart endpoints.
type Handler struct {
	Svc *Service
}

type addItemPayload struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Qty       int32  `json:"qty" validate:"gte=1"`
}

type updateItemPayload struct {
	Qty int32 `json:"qty" validate:"gte=0"`
}

type applyCouponPayload struct {
	Code string `json:"code" validate:"required,min=2,max=40"`
	CEP  string `json:"cep,omitempty"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var userID *uuid.UUID
	if raw, ok := common.UserID(r.Context()); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			userID = &parsed
		}
	}
	created, err := h.Svc.Create(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create cart", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Get handles GET /api/v1/carts/{cartId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.GetView(r.Context(), cartID, r.URL.Query().Get("cep"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem handles POST /api/v1/carts/{cartId}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload addItemPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), cartID, productID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// UpdateItem handles PATCH /api/v1/carts/{cartId}/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var payload updateItemPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.Svc.UpdateItem(r.Context(), cartID, itemID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem handles DELETE /api/v1/carts/{cartId}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), cartID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon handles POST /api/v1/carts/{cartId}/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var payload applyCouponPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.Svc.ApplyCoupon(r.Context(), cartID, payload.Code, payload.CEP); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveCoupon handles DELETE /api/v1/carts/{cartId}/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveCoupon(r.Context(), cartID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cartId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, coupon.ErrUnknownCode):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found", nil)
	case errors.Is(err, ErrProductUnavailable):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRODUCT_UNAVAILABLE", "product unavailable", nil)
	case errors.Is(err, ErrInsufficientStock):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", "insufficient stock", nil)
	case errors.Is(err, freight.ErrInvalidCEP):
		common.JSONError(w, http.StatusBadRequest, "INVALID_CEP", "invalid CEP", nil)
	default:
		if reason := coupon.RejectionCode(err); reason != "" {
			common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_NOT_APPLICABLE", "coupon not applicable",
				map[string]any{"reason": reason})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
