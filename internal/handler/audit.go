package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"go.uber.org/zap"
)

// AuditReader queries the audit log.
type AuditReader interface {
	List(ctx context.Context, f model.AuditFilter) (*model.AuditPage, error)
	Stats(ctx context.Context) (*model.AuditStats, error)
}

// AuditHandler serves the audit query endpoints.
type AuditHandler struct {
	audit AuditReader
	log   *zap.Logger
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit AuditReader, log *zap.Logger) *AuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{audit: audit, log: log}
}

// List handles GET /api/audit?page=&limit=&action=&entityType=
// Missing or malformed page/limit fall back to the defaults.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.audit.List(r.Context(), model.AuditFilter{
		Page:       page,
		Limit:      limit,
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
	})
	if err != nil {
		h.log.Error("list audit logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*model.AuditPage
	}{true, result})
}

// Stats handles GET /api/audit/stats
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.audit.Stats(r.Context())
	if err != nil {
		h.log.Error("audit stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load audit statistics")
		return
	}

	writeOK(w, http.StatusOK, "", stats)
}
