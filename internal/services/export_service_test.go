package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"

	"github.com/datatrace-io/datatrace/internal/config"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
	"github.com/datatrace-io/datatrace/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExportService(t *testing.T, people *MockPeopleRepository, logs *MockSearchLogRepository, usage *MockUsageRepository, maxRows int) (*ExportService, *MockExportRepository) {
	t.Helper()
	quota := NewQuotaService(&MockUserRepository{}, usage, istLocation(), clock.System(), testLogger())
	exports := &MockExportRepository{}
	cfg := config.ExportConfig{Dir: t.TempDir(), MaxRows: maxRows}
	return NewExportService(people, logs, exports, quota, cfg, testLogger()), exports
}

func storedSearch(t *testing.T) *MockSearchLogRepository {
	t.Helper()
	stored, err := json.Marshal(&models.SearchRequest{Query: "sharma", Fields: []string{"name"}})
	require.NoError(t, err)
	return &MockSearchLogRepository{
		GetByIDFunc: func(ctx context.Context, id, userID string) (*models.SearchLog, error) {
			return &models.SearchLog{ID: id, UserID: userID, SearchQuery: stored}, nil
		},
	}
}

func TestExportSearch_WritesCSV(t *testing.T) {
	people := &MockPeopleRepository{
		SearchFunc: func(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error) {
			return []models.Person{
				NewTestPerson("1", "718834427584", "9876543210", "Sharma"),
				NewTestPerson("2", "", "9123456789", "Sharma Two"),
			}, nil
		},
	}
	usage := &MockUsageRepository{}
	svc, exports := newExportService(t, people, storedSearch(t), usage, 1000)

	result, err := svc.ExportSearch(context.Background(), "user1", "search-1")

	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Positive(t, result.FileSizeBytes)

	f, err := os.Open(result.FilePath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "Sharma", records[1][3])

	require.Len(t, exports.Inserted, 1)
	assert.Equal(t, 2, exports.Inserted[0].RowCount)
	assert.Len(t, usage.ExportIncrements, 1)
}

func TestExportSearch_TruncatesAtRowCap(t *testing.T) {
	people := &MockPeopleRepository{
		SearchFunc: func(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error) {
			// The service asks for cap+1 to detect truncation.
			assert.Equal(t, 2, limit)
			return makePeople("row", 2), nil
		},
	}
	svc, _ := newExportService(t, people, storedSearch(t), &MockUsageRepository{}, 1)

	result, err := svc.ExportSearch(context.Background(), "user1", "search-1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestExportSearch_LimitExceeded(t *testing.T) {
	usage := &MockUsageRepository{
		GetExportCountFunc: func(ctx context.Context, userID, date string) (int, error) {
			return 20, nil
		},
	}
	svc, exports := newExportService(t, &MockPeopleRepository{}, storedSearch(t), usage, 1000)

	_, err := svc.ExportSearch(context.Background(), "user1", "search-1")

	assert.ErrorIs(t, err, models.ErrExportLimitExceeded)
	assert.Empty(t, exports.Inserted)
}

func TestExportSearch_UnknownSearch(t *testing.T) {
	svc, _ := newExportService(t, &MockPeopleRepository{}, &MockSearchLogRepository{}, &MockUsageRepository{}, 1000)

	_, err := svc.ExportSearch(context.Background(), "user1", "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
