package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/datatrace-io/datatrace/internal/models"
	pkghttp "github.com/datatrace-io/datatrace/pkg/http"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// SearchService defines the search business logic the handler depends on.
type SearchService interface {
	Search(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResponse, error)
	SearchWithin(ctx context.Context, userID string, req *models.SearchWithinRequest) (*models.SearchResponse, error)
	GetPersonByID(ctx context.Context, id string) (*models.Person, error)
	GetSearchStats(ctx context.Context) (*models.SearchStats, error)
}

// UsageService exposes the current quota counters for introspection.
type UsageService interface {
	TodayUsage(ctx context.Context, userID string) (*models.DailyUsage, *models.User, error)
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	service SearchService
	usage   UsageService
	audit   *pkglogger.AuditLogger
}

func NewSearchHandler(service SearchService, usage UsageService, audit *pkglogger.AuditLogger) *SearchHandler {
	return &SearchHandler{
		service: service,
		usage:   usage,
		audit:   audit,
	}
}

// UsageResponse reports today's consumption against the user's limits.
type UsageResponse struct {
	SearchCount  int `json:"search_count"`
	SearchLimit  int `json:"search_limit"`
	SearchesLeft int `json:"searches_left"`
	ExportCount  int `json:"export_count"`
	ExportLimit  int `json:"export_limit"`
	ExportsLeft  int `json:"exports_left"`
}

// Search executes a primary or enhanced-mobile search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	// Fingerprints are server-derived; never trust one from the client.
	req.Fingerprint = ""

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Search(r.Context(), user.ID, &req)
	if err != nil {
		h.writeSearchError(w, user.ID, err)
		return
	}

	h.audit.LogSearch(pkglogger.SearchEvent{
		UserID:       user.ID,
		SearchID:     resp.SearchID,
		Variant:      "search",
		ResultCount:  resp.TotalCount,
		ExecutionMs:  resp.ExecutionTime,
		QuotaCharged: resp.TotalCount > 0,
	})
	respondJSON(w, http.StatusOK, resp)
}

// SearchWithin refines a previously executed search.
func (h *SearchHandler) SearchWithin(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req models.SearchWithinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.SearchWithin(r.Context(), user.ID, &req)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "search not found")
			return
		}
		h.writeSearchError(w, user.ID, err)
		return
	}

	h.audit.LogSearch(pkglogger.SearchEvent{
		UserID:       user.ID,
		SearchID:     resp.SearchID,
		Variant:      "search_within",
		ResultCount:  resp.TotalCount,
		ExecutionMs:  resp.ExecutionTime,
		QuotaCharged: resp.TotalCount > 0,
	})
	respondJSON(w, http.StatusOK, resp)
}

// GetPerson fetches a single record by ID.
func (h *SearchHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "person ID is required")
		return
	}

	person, err := h.service.GetPersonByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "person not found")
			return
		}
		pkghttp.WriteInternalError(w, "failed to fetch person")
		return
	}

	respondJSON(w, http.StatusOK, person)
}

// GetStats reports dataset size and recent search performance.
func (h *SearchHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetSearchStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetUsage reports the caller's remaining daily capacity.
func (h *SearchHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	usage, account, err := h.usage.TodayUsage(r.Context(), user.ID)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to fetch usage")
		return
	}

	respondJSON(w, http.StatusOK, &UsageResponse{
		SearchCount:  usage.SearchCount,
		SearchLimit:  account.MaxSearchesPerDay,
		SearchesLeft: max(0, account.MaxSearchesPerDay-usage.SearchCount),
		ExportCount:  usage.ExportCount,
		ExportLimit:  account.MaxExportsPerDay,
		ExportsLeft:  max(0, account.MaxExportsPerDay-usage.ExportCount),
	})
}

// writeSearchError maps service sentinels onto HTTP statuses.
func (h *SearchHandler) writeSearchError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, models.ErrQuotaExceeded):
		h.audit.LogQuotaDenied(userID, "search")
		pkghttp.WriteTooManyRequests(w, "daily search limit exceeded")
	case errors.Is(err, models.ErrEmptyCriteria):
		pkghttp.WriteBadRequest(w, "search criteria contain no usable terms")
	case errors.Is(err, models.ErrSearchTimeout):
		pkghttp.WriteGatewayTimeout(w, "search timed out")
	case errors.Is(err, models.ErrExecutionFailed):
		pkghttp.WriteInternalError(w, "search execution failed")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
