package audit

import (
	"net/http"

	"github.com/lojamovel/backend-loja/internal/common"
)

// Handler exposes the admin audit trail.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/admin/audit-logs.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 50, 200)
	rows, err := h.Store.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
