package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository maintains the daily usage ledger. The counter row is the one
// resource mutated concurrently by many requests for the same user, so every
// increment is an atomic upsert; there is no read-modify-write anywhere.
type UsageRepository struct {
	db   *database.Postgres
	pool *pgxpool.Pool
}

func NewUsageRepository(db *database.Postgres) *UsageRepository {
	return &UsageRepository{db: db, pool: db.Pool}
}

// GetSearchCount returns today's search count; a missing row means zero usage.
func (r *UsageRepository) GetSearchCount(ctx context.Context, userID, date string) (int, error) {
	query := `SELECT search_count FROM daily_usage WHERE user_id = $1 AND date = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// GetExportCount returns today's export count; a missing row means zero usage.
func (r *UsageRepository) GetExportCount(ctx context.Context, userID, date string) (int, error) {
	query := `SELECT export_count FROM daily_usage WHERE user_id = $1 AND date = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// GetUsage returns the full counter row, zero-valued when absent.
func (r *UsageRepository) GetUsage(ctx context.Context, userID, date string) (*models.DailyUsage, error) {
	query := `
		SELECT id, user_id, date, search_count, export_count
		FROM daily_usage WHERE user_id = $1 AND date = $2
	`

	var usage models.DailyUsage
	err := r.pool.QueryRow(ctx, query, userID, date).Scan(
		&usage.ID, &usage.UserID, &usage.Date, &usage.SearchCount, &usage.ExportCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.DailyUsage{UserID: userID}, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &usage, nil
}

// IncrementSearchCount lazily creates today's row and bumps the counter in a
// single statement.
func (r *UsageRepository) IncrementSearchCount(ctx context.Context, userID, date string) error {
	query := `
		INSERT INTO daily_usage (user_id, date, search_count, export_count)
		VALUES ($1, $2, 1, 0)
		ON CONFLICT (user_id, date)
		DO UPDATE SET search_count = daily_usage.search_count + 1
	`

	_, err := r.pool.Exec(ctx, query, userID, date)
	return database.MapPostgresError(err)
}

// IncrementExportCount mirrors IncrementSearchCount for exports.
func (r *UsageRepository) IncrementExportCount(ctx context.Context, userID, date string) error {
	query := `
		INSERT INTO daily_usage (user_id, date, search_count, export_count)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (user_id, date)
		DO UPDATE SET export_count = daily_usage.export_count + 1
	`

	_, err := r.pool.Exec(ctx, query, userID, date)
	return database.MapPostgresError(err)
}

// ResetForDate removes all counters for one calendar date and writes the
// system-log audit row in the same transaction, so a reset can never appear
// in the audit trail without having happened (or vice versa). The reset
// scheduler calls this at local midnight.
func (r *UsageRepository) ResetForDate(ctx context.Context, date, operation string) (int64, error) {
	var deleted int64
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM daily_usage WHERE date = $1`, date)
		if err != nil {
			return err
		}
		deleted = result.RowsAffected()

		details := fmt.Sprintf("date=%s rows_deleted=%d", date, deleted)
		_, err = tx.Exec(ctx,
			`INSERT INTO system_logs (operation, details) VALUES ($1, $2)`,
			operation, details)
		return err
	})
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return deleted, nil
}

// DeleteOlderThan prunes counters past the retention window.
func (r *UsageRepository) DeleteOlderThan(ctx context.Context, cutoffDate string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM daily_usage WHERE date < $1`, cutoffDate)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
