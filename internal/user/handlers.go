package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes the profile and address book endpoints.
type Handler struct {
	Svc *Service
}

type profilePayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
	CPF   string `json:"cpf" validate:"omitempty,max=14"`
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	profile, err := h.Svc.GetMe(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

// UpsertMe handles PUT /api/v1/me.
func (h *Handler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var payload profilePayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	profile, err := h.Svc.UpsertMe(r.Context(), userID, ProfileInput{
		Email: payload.Email, Name: payload.Name, Phone: payload.Phone, CPF: payload.CPF,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

type addressPayload struct {
	Label        string `json:"label" validate:"omitempty,max=60"`
	ReceiverName string `json:"receiverName" validate:"required,min=2,max=120"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	CEP          string `json:"cep" validate:"required,max=9"`
	Street       string `json:"street" validate:"required,max=200"`
	Number       string `json:"number" validate:"required,max=20"`
	Complement   string `json:"complement" validate:"omitempty,max=100"`
	District     string `json:"district" validate:"omitempty,max=100"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,len=2"`
	IsDefault    bool   `json:"isDefault"`
}

// ListAddresses handles GET /api/v1/me/addresses.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	addresses, err := h.Svc.ListAddresses(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": addresses})
}

// CreateAddress handles POST /api/v1/me/addresses.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var payload addressPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	address, err := h.Svc.CreateAddress(r.Context(), userID, AddressInput{
		Label: payload.Label, ReceiverName: payload.ReceiverName, Phone: payload.Phone,
		CEP: payload.CEP, Street: payload.Street, Number: payload.Number,
		Complement: payload.Complement, District: payload.District,
		City: payload.City, State: payload.State, IsDefault: payload.IsDefault,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": address})
}

// SetDefaultAddress handles POST /api/v1/me/addresses/{addressId}/default.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.SetDefaultAddress(r.Context(), userID, addressID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAddress handles DELETE /api/v1/me/addresses/{addressId}.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteAddress(r.Context(), userID, addressID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

func addressIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "addressId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid address id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	case errors.Is(err, ErrInvalidPhone):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PHONE", "phone failed validation", nil)
	case errors.Is(err, ErrInvalidCPF):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CPF", "cpf failed validation", nil)
	case errors.Is(err, ErrInvalidCEP):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CEP", "cep failed validation", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile error", nil)
	}
}
