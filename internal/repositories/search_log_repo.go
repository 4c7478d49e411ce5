package repositories

import (
	"context"
	"time"

	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository persists the append-only search log. Entries are never
// mutated after insert.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(db *database.Postgres) *SearchLogRepository {
	return &SearchLogRepository{pool: db.Pool}
}

func (r *SearchLogRepository) Insert(ctx context.Context, entry *models.SearchLog) error {
	query := `
		INSERT INTO searches (id, user_id, search_query, result_count, execution_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.UserID, entry.SearchQuery, entry.ResultCount, entry.ExecutionTimeMs,
	)
	return database.MapPostgresError(err)
}

// GetByID fetches a log entry scoped to its owner; a foreign or missing id is
// ErrNotFound either way.
func (r *SearchLogRepository) GetByID(ctx context.Context, id, userID string) (*models.SearchLog, error) {
	query := `
		SELECT id, user_id, search_query, search_time, result_count, execution_time_ms
		FROM searches WHERE id = $1 AND user_id = $2
	`

	var entry models.SearchLog
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&entry.ID, &entry.UserID, &entry.SearchQuery,
		&entry.SearchTime, &entry.ResultCount, &entry.ExecutionTimeMs,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &entry, nil
}

// ExistsBetween reports whether the user already logged a search with this
// fingerprint inside [from, to). The caller supplies the quota-timezone day
// boundaries so the duplicate window matches the usage ledger's calendar.
func (r *SearchLogRepository) ExistsBetween(ctx context.Context, userID, fingerprint string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM searches
			WHERE user_id = $1
			  AND search_query ->> 'fingerprint' = $2
			  AND search_time >= $3 AND search_time < $4
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, fingerprint, from, to).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}
