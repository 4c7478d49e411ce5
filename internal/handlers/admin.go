package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/datatrace-io/datatrace/internal/auth"
	pkghttp "github.com/datatrace-io/datatrace/pkg/http"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
)

// UsageResetter is implemented by the background reset manager.
type UsageResetter interface {
	ManualReset(ctx context.Context) (int64, error)
	NextResetTime() time.Time
}

// AdminHandler exposes privileged quota operations.
type AdminHandler struct {
	resetter UsageResetter
	audit    *pkglogger.AuditLogger
}

func NewAdminHandler(resetter UsageResetter, audit *pkglogger.AuditLogger) *AdminHandler {
	return &AdminHandler{
		resetter: resetter,
		audit:    audit,
	}
}

// ResetUsage clears today's usage counters immediately.
func (h *AdminHandler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	deleted, err := h.resetter.ManualReset(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "usage reset failed")
		return
	}

	h.audit.LogAdminAction(user.ID, "manual_usage_reset", map[string]string{
		"rows_deleted": fmt.Sprintf("%d", deleted),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"rows_deleted": deleted,
	})
}

// NextReset reports when the scheduler will next clear the ledger.
func (h *AdminHandler) NextReset(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"next_reset": h.resetter.NextResetTime().Format(time.RFC3339),
	})
}
