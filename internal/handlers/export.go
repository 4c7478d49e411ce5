package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/services"
	pkghttp "github.com/datatrace-io/datatrace/pkg/http"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// ExportService defines the export business logic the handler depends on.
type ExportService interface {
	ExportSearch(ctx context.Context, userID, searchID string) (*services.ExportResult, error)
}

// ExportHandler handles CSV export requests
type ExportHandler struct {
	service ExportService
	audit   *pkglogger.AuditLogger
}

func NewExportHandler(service ExportService, audit *pkglogger.AuditLogger) *ExportHandler {
	return &ExportHandler{
		service: service,
		audit:   audit,
	}
}

// Export writes the results of a previously executed search to CSV.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	searchID := chi.URLParam(r, "id")
	if searchID == "" {
		pkghttp.WriteBadRequest(w, "search ID is required")
		return
	}

	result, err := h.service.ExportSearch(r.Context(), user.ID, searchID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrExportLimitExceeded):
			h.audit.LogQuotaDenied(user.ID, "export")
			pkghttp.WriteTooManyRequests(w, "daily export limit exceeded")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "search not found")
		case errors.Is(err, models.ErrEmptyCriteria):
			pkghttp.WriteBadRequest(w, "stored search has no usable criteria")
		case errors.Is(err, models.ErrSearchTimeout):
			pkghttp.WriteGatewayTimeout(w, "export query timed out")
		default:
			pkghttp.WriteInternalError(w, "export failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
