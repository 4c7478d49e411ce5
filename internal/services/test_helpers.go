package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
)

// testLogger discards output; tests assert on behavior, not log lines.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockPeopleRepository implements PeopleRepository for testing
type MockPeopleRepository struct {
	SearchFunc               func(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error)
	CountFunc                func(ctx context.Context, pred *query.Predicate) (int, error)
	AllMatchesFunc           func(ctx context.Context, pred *query.Predicate) ([]models.Person, error)
	MasterOrderedMatchesFunc func(ctx context.Context, pred *query.Predicate) ([]models.Person, error)
	GetByIDFunc              func(ctx context.Context, id string) (*models.Person, error)
	TotalRecordsFunc         func(ctx context.Context) (uint64, error)
	RecentPerformanceFunc    func(ctx context.Context) (float64, int64, error)
	LogPerformanceFunc       func(ctx context.Context, queryID, userID, queryText string, executionTimeMs, resultCount int) error
}

func (m *MockPeopleRepository) Search(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, pred, limit, offset)
	}
	return []models.Person{}, nil
}

func (m *MockPeopleRepository) Count(ctx context.Context, pred *query.Predicate) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, pred)
	}
	return 0, nil
}

func (m *MockPeopleRepository) AllMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error) {
	if m.AllMatchesFunc != nil {
		return m.AllMatchesFunc(ctx, pred)
	}
	return []models.Person{}, nil
}

func (m *MockPeopleRepository) MasterOrderedMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error) {
	if m.MasterOrderedMatchesFunc != nil {
		return m.MasterOrderedMatchesFunc(ctx, pred)
	}
	return []models.Person{}, nil
}

func (m *MockPeopleRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPeopleRepository) TotalRecords(ctx context.Context) (uint64, error) {
	if m.TotalRecordsFunc != nil {
		return m.TotalRecordsFunc(ctx)
	}
	return 0, nil
}

func (m *MockPeopleRepository) RecentPerformance(ctx context.Context) (float64, int64, error) {
	if m.RecentPerformanceFunc != nil {
		return m.RecentPerformanceFunc(ctx)
	}
	return 0, 0, nil
}

func (m *MockPeopleRepository) LogPerformance(ctx context.Context, queryID, userID, queryText string, executionTimeMs, resultCount int) error {
	if m.LogPerformanceFunc != nil {
		return m.LogPerformanceFunc(ctx, queryID, userID, queryText, executionTimeMs, resultCount)
	}
	return nil
}

// MockSearchLogRepository implements SearchLogRepository for testing. Inserted
// entries are captured so tests can inspect what was persisted.
type MockSearchLogRepository struct {
	InsertFunc        func(ctx context.Context, entry *models.SearchLog) error
	GetByIDFunc       func(ctx context.Context, id, userID string) (*models.SearchLog, error)
	ExistsBetweenFunc func(ctx context.Context, userID, fingerprint string, from, to time.Time) (bool, error)
	Inserted          []*models.SearchLog
}

func (m *MockSearchLogRepository) Insert(ctx context.Context, entry *models.SearchLog) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.Inserted = append(m.Inserted, entry)
	return nil
}

func (m *MockSearchLogRepository) GetByID(ctx context.Context, id, userID string) (*models.SearchLog, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSearchLogRepository) ExistsBetween(ctx context.Context, userID, fingerprint string, from, to time.Time) (bool, error) {
	if m.ExistsBetweenFunc != nil {
		return m.ExistsBetweenFunc(ctx, userID, fingerprint, from, to)
	}
	return false, nil
}

// MockQuotaGate implements QuotaGate for testing. Defaults to unlimited
// capacity; increments are counted.
type MockQuotaGate struct {
	CheckSearchLimitFunc func(ctx context.Context, userID string) (bool, error)
	DayBoundsFunc        func() (time.Time, time.Time)
	IncrementCalls       int
}

func (m *MockQuotaGate) CheckSearchLimit(ctx context.Context, userID string) (bool, error) {
	if m.CheckSearchLimitFunc != nil {
		return m.CheckSearchLimitFunc(ctx, userID)
	}
	return true, nil
}

func (m *MockQuotaGate) IncrementSearchCount(ctx context.Context, userID string) error {
	m.IncrementCalls++
	return nil
}

func (m *MockQuotaGate) DayBounds() (time.Time, time.Time) {
	if m.DayBoundsFunc != nil {
		return m.DayBoundsFunc()
	}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// MockUserRepository implements QuotaUserRepository for testing
type MockUserRepository struct {
	GetActiveByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *MockUserRepository) GetActiveByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetActiveByIDFunc != nil {
		return m.GetActiveByIDFunc(ctx, id)
	}
	return NewTestUser(id), nil
}

// MockUsageRepository implements UsageRepository for testing
type MockUsageRepository struct {
	GetSearchCountFunc       func(ctx context.Context, userID, date string) (int, error)
	GetExportCountFunc       func(ctx context.Context, userID, date string) (int, error)
	GetUsageFunc             func(ctx context.Context, userID, date string) (*models.DailyUsage, error)
	IncrementSearchCountFunc func(ctx context.Context, userID, date string) error
	IncrementExportCountFunc func(ctx context.Context, userID, date string) error
	SearchIncrements         []string
	ExportIncrements         []string
}

func (m *MockUsageRepository) GetSearchCount(ctx context.Context, userID, date string) (int, error) {
	if m.GetSearchCountFunc != nil {
		return m.GetSearchCountFunc(ctx, userID, date)
	}
	return 0, nil
}

func (m *MockUsageRepository) GetExportCount(ctx context.Context, userID, date string) (int, error) {
	if m.GetExportCountFunc != nil {
		return m.GetExportCountFunc(ctx, userID, date)
	}
	return 0, nil
}

func (m *MockUsageRepository) GetUsage(ctx context.Context, userID, date string) (*models.DailyUsage, error) {
	if m.GetUsageFunc != nil {
		return m.GetUsageFunc(ctx, userID, date)
	}
	return &models.DailyUsage{UserID: userID}, nil
}

func (m *MockUsageRepository) IncrementSearchCount(ctx context.Context, userID, date string) error {
	if m.IncrementSearchCountFunc != nil {
		return m.IncrementSearchCountFunc(ctx, userID, date)
	}
	m.SearchIncrements = append(m.SearchIncrements, date)
	return nil
}

func (m *MockUsageRepository) IncrementExportCount(ctx context.Context, userID, date string) error {
	if m.IncrementExportCountFunc != nil {
		return m.IncrementExportCountFunc(ctx, userID, date)
	}
	m.ExportIncrements = append(m.ExportIncrements, date)
	return nil
}

// MockExportRepository implements ExportRepository for testing
type MockExportRepository struct {
	InsertFunc func(ctx context.Context, entry *models.ExportLog) error
	Inserted   []*models.ExportLog
}

func (m *MockExportRepository) Insert(ctx context.Context, entry *models.ExportLog) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.Inserted = append(m.Inserted, entry)
	return nil
}

// NewTestUser creates an active user with default limits
func NewTestUser(id string) *models.User {
	now := time.Now()
	return &models.User{
		ID:                id,
		Email:             "analyst@example.com",
		Name:              "Test Analyst",
		Role:              "user",
		IsActive:          true,
		MaxSearchesPerDay: 500,
		MaxExportsPerDay:  20,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewTestPerson creates a person row with the given identity fields
func NewTestPerson(id, masterID, mobile, name string) models.Person {
	return models.Person{
		ID:       id,
		MasterID: masterID,
		Mobile:   mobile,
		Name:     name,
		FName:    "Parent " + name,
		Address:  "12 Test Street 110001",
		Circle:   "DL",
	}
}
