package repositories

import (
	"context"

	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportRepository records completed CSV exports.
type ExportRepository struct {
	pool *pgxpool.Pool
}

func NewExportRepository(db *database.Postgres) *ExportRepository {
	return &ExportRepository{pool: db.Pool}
}

func (r *ExportRepository) Insert(ctx context.Context, entry *models.ExportLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO exports (id, user_id, search_id, row_count, file_size_bytes)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.UserID, entry.SearchID, entry.RowCount, entry.FileSizeBytes,
	)
	return database.MapPostgresError(err)
}
