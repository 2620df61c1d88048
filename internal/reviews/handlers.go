package reviews

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes the review endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/products/{slug}/reviews (public).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 10, 50)
	result, err := h.Svc.List(r.Context(), chi.URLParam(r, "slug"), limit, (page-1)*limit)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

type reviewPayload struct {
	Rating  int32  `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// Submit handles PUT /api/v1/products/{slug}/reviews.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var payload reviewPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	review, err := h.Svc.Submit(r.Context(), userID, chi.URLParam(r, "slug"), payload.Rating, payload.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": review})
}

// Delete handles DELETE /api/v1/reviews/{reviewId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	reviewID, err := uuid.Parse(chi.URLParam(r, "reviewId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid review id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), userID, reviewID); err != nil {
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

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "review not found", nil)
	case errors.Is(err, ErrInvalidRating):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_RATING", "rating must be between 1 and 5", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reviews error", nil)
	}
}
