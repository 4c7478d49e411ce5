package repositories

import (
	"context"

	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SystemLogRepository writes operational audit rows (quota resets, prunes).
type SystemLogRepository struct {
	pool *pgxpool.Pool
}

func NewSystemLogRepository(db *database.Postgres) *SystemLogRepository {
	return &SystemLogRepository{pool: db.Pool}
}

func (r *SystemLogRepository) Insert(ctx context.Context, operation, details string) error {
	query := `INSERT INTO system_logs (operation, details) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, operation, details)
	return database.MapPostgresError(err)
}
