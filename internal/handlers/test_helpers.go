package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/services"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
)

func testAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// MockSearchService implements SearchService for testing
type MockSearchService struct {
	SearchFunc         func(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResponse, error)
	SearchWithinFunc   func(ctx context.Context, userID string, req *models.SearchWithinRequest) (*models.SearchResponse, error)
	GetPersonByIDFunc  func(ctx context.Context, id string) (*models.Person, error)
	GetSearchStatsFunc func(ctx context.Context) (*models.SearchStats, error)
}

func (m *MockSearchService) Search(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResponse, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, userID, req)
	}
	return &models.SearchResponse{Results: []models.Person{}}, nil
}

func (m *MockSearchService) SearchWithin(ctx context.Context, userID string, req *models.SearchWithinRequest) (*models.SearchResponse, error) {
	if m.SearchWithinFunc != nil {
		return m.SearchWithinFunc(ctx, userID, req)
	}
	return &models.SearchResponse{Results: []models.Person{}}, nil
}

func (m *MockSearchService) GetPersonByID(ctx context.Context, id string) (*models.Person, error) {
	if m.GetPersonByIDFunc != nil {
		return m.GetPersonByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSearchService) GetSearchStats(ctx context.Context) (*models.SearchStats, error) {
	if m.GetSearchStatsFunc != nil {
		return m.GetSearchStatsFunc(ctx)
	}
	return &models.SearchStats{}, nil
}

// MockUsageService implements UsageService for testing
type MockUsageService struct {
	TodayUsageFunc func(ctx context.Context, userID string) (*models.DailyUsage, *models.User, error)
}

func (m *MockUsageService) TodayUsage(ctx context.Context, userID string) (*models.DailyUsage, *models.User, error) {
	if m.TodayUsageFunc != nil {
		return m.TodayUsageFunc(ctx, userID)
	}
	return &models.DailyUsage{UserID: userID}, &models.User{ID: userID, MaxSearchesPerDay: 500, MaxExportsPerDay: 20}, nil
}

// MockExportService implements ExportService for testing
type MockExportService struct {
	ExportSearchFunc func(ctx context.Context, userID, searchID string) (*services.ExportResult, error)
}

func (m *MockExportService) ExportSearch(ctx context.Context, userID, searchID string) (*services.ExportResult, error) {
	if m.ExportSearchFunc != nil {
		return m.ExportSearchFunc(ctx, userID, searchID)
	}
	return &services.ExportResult{}, nil
}

// authenticatedRequest builds a request carrying an authenticated identity.
func authenticatedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	user := &models.User{ID: "user1", Email: "a@example.com", Role: "user", IsActive: true, MaxSearchesPerDay: 500, MaxExportsPerDay: 20}
	return req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, user))
}
