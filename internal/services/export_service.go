package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/datatrace-io/datatrace/internal/config"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
	"github.com/google/uuid"
)

const exportTimeout = 2 * time.Minute

// ExportRepository records completed exports.
type ExportRepository interface {
	Insert(ctx context.Context, entry *models.ExportLog) error
}

// ExportQuotaGate is the slice of the quota service the export path needs.
type ExportQuotaGate interface {
	CheckExportLimit(ctx context.Context, userID string) (bool, error)
	IncrementExportCount(ctx context.Context, userID string) error
}

// ExportResult describes a finished CSV export.
type ExportResult struct {
	ExportID      string `json:"export_id"`
	FilePath      string `json:"file_path"`
	RowCount      int    `json:"row_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Truncated     bool   `json:"truncated"`
}

// ExportService re-executes a persisted search and writes the full result set
// to a CSV file, charging the export quota.
type ExportService struct {
	people  PeopleRepository
	logs    SearchLogRepository
	exports ExportRepository
	quota   ExportQuotaGate
	cfg     config.ExportConfig
	logger  *slog.Logger
}

func NewExportService(people PeopleRepository, logs SearchLogRepository, exports ExportRepository, quota ExportQuotaGate, cfg config.ExportConfig, logger *slog.Logger) *ExportService {
	return &ExportService{
		people:  people,
		logs:    logs,
		exports: exports,
		quota:   quota,
		cfg:     cfg,
		logger:  logger,
	}
}

// ExportSearch exports the results of a previously logged search, owner-scoped
// the same way search-within is. Result sets larger than the configured row
// cap are truncated, not failed.
func (s *ExportService) ExportSearch(ctx context.Context, userID, searchID string) (*ExportResult, error) {
	allowed, err := s.quota.CheckExportLimit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("export quota check failed: %w", err)
	}
	if !allowed {
		return nil, models.ErrExportLimitExceeded
	}

	entry, err := s.logs.GetByID(ctx, searchID, userID)
	if err != nil {
		return nil, err
	}

	var req models.SearchRequest
	if err := json.Unmarshal(entry.SearchQuery, &req); err != nil {
		s.logger.Error("stored search criteria unreadable",
			slog.String("search_id", searchID), slog.String("error", err.Error()))
		return nil, models.ErrInternalServer
	}

	pred, _, err := query.Compile(&req)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	// Fetch one row past the cap so truncation is detectable.
	rows, err := s.people.Search(execCtx, pred, s.cfg.MaxRows+1, 0)
	if err != nil {
		return nil, execError(err)
	}
	truncated := len(rows) > s.cfg.MaxRows
	if truncated {
		rows = rows[:s.cfg.MaxRows]
	}

	exportID := uuid.New().String()
	path, size, err := s.writeCSV(exportID, rows)
	if err != nil {
		return nil, fmt.Errorf("export write failed: %w", err)
	}

	record := &models.ExportLog{
		ID:            exportID,
		UserID:        userID,
		SearchID:      &searchID,
		RowCount:      len(rows),
		FileSizeBytes: size,
	}
	if err := s.exports.Insert(ctx, record); err != nil {
		s.logger.Error("export log insert failed",
			slog.String("export_id", exportID), slog.String("error", err.Error()))
	}

	if err := s.quota.IncrementExportCount(ctx, userID); err != nil {
		s.logger.Error("export usage increment failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}

	return &ExportResult{
		ExportID:      exportID,
		FilePath:      path,
		RowCount:      len(rows),
		FileSizeBytes: size,
		Truncated:     truncated,
	}, nil
}

func (s *ExportService) writeCSV(exportID string, rows []models.Person) (string, int64, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("export_%s.csv", exportID))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"id", "master_id", "mobile", "name", "fname", "address", "alt", "circle", "email", "created_at"}
	if err := w.Write(header); err != nil {
		return "", 0, err
	}

	for i := range rows {
		p := &rows[i]
		record := []string{
			p.ID,
			p.MasterID,
			p.Mobile,
			p.Name,
			p.FName,
			p.Address,
			p.Alt,
			p.Circle,
			p.Email,
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return "", 0, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}
