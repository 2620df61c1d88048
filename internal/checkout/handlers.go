package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/freight"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

type placeOrderPayload struct {
	CartID          string          `json:"cartId" validate:"required,uuid4"`
	CEP             string          `json:"cep" validate:"required"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,oneof=pix card"`
	Installments    int32           `json:"installments" validate:"gte=0,lte=48"`
	ShippingAddress json.RawMessage `json:"shippingAddress" validate:"required"`
	Notes           string          `json:"notes,omitempty" validate:"max=500"`
}

// PlaceOrder handles POST /api/v1/checkout.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	rawUser, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	var payload placeOrderPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	cartID, err := uuid.Parse(payload.CartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	if payload.PaymentMethod == "pix" && payload.Installments > 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "pix does not support installments", nil)
		return
	}

	order, err := h.Svc.PlaceOrder(r.Context(), Request{
		CartID:          cartID,
		UserID:          userID,
		CEP:             payload.CEP,
		PaymentMethod:   payload.PaymentMethod,
		Installments:    payload.Installments,
		ShippingAddress: payload.ShippingAddress,
		Notes:           payload.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, ErrInstallmentsUnavailable):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSTALLMENTS_UNAVAILABLE", "installment plan unavailable", nil)
	case errors.Is(err, coupon.ErrUnknownCode):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_NOT_FOUND", "applied coupon no longer exists", nil)
	case errors.Is(err, freight.ErrInvalidCEP):
		common.JSONError(w, http.StatusBadRequest, "INVALID_CEP", "invalid CEP", nil)
	default:
		if reason := coupon.RejectionCode(err); reason != "" {
			common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_NOT_APPLICABLE", "applied coupon no longer valid",
				map[string]any{"reason": reason})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to place order", nil)
	}
}
