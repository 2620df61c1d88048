package kyc

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes the customer-facing submission endpoints.
type Handler struct {
	Svc *Service
}

// Submit handles POST /api/v1/kyc/documents. The document comes as a
// multipart form with cpf, docType and file fields.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	limit := h.Svc.MaxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "file field required", nil)
		return
	}
	defer file.Close()

	// Read one byte past the cap so oversized uploads are detected
	// without buffering the whole excess.
	body, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read file", nil)
		return
	}

	doc, err := h.Svc.Submit(r.Context(), Submission{
		UserID:      userID,
		CPF:         r.FormValue("cpf"),
		DocType:     r.FormValue("docType"),
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": doc})
}

// Status handles GET /api/v1/kyc/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	doc, err := h.Svc.StatusForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// AdminHandler exposes the back-office review endpoints.
type AdminHandler struct {
	Svc *Service
}

// ListPending handles GET /api/v1/admin/kyc/pending.
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20, 100)
	docs, err := h.Svc.ListPending(r.Context(), limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list submissions", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": docs})
}

type reviewPayload struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"omitempty,max=500"`
}

// Review handles POST /api/v1/admin/kyc/{docId}/review.
func (h *AdminHandler) Review(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, err := uuid.Parse(chi.URLParam(r, "docId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid document id", nil)
		return
	}
	var payload reviewPayload
	if !common.DecodeAndValidate(w, r, &payload) {
		return
	}
	doc, err := h.Svc.Review(r.Context(), docID, payload.Decision == "approve", payload.Reason, reviewer)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
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
	case errors.Is(err, ErrInvalidCPF):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CPF", "cpf failed validation", nil)
	case errors.Is(err, ErrInvalidDocType):
		common.JSONError(w, http.StatusBadRequest, "INVALID_DOC_TYPE", "unsupported document type", nil)
	case errors.Is(err, ErrDocumentTooLarge):
		common.JSONError(w, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", "document exceeds the size limit", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "submission not found", nil)
	case errors.Is(err, ErrAlreadyDecided):
		common.JSONError(w, http.StatusConflict, "ALREADY_DECIDED", "submission already decided", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "kyc error", nil)
	}
}
