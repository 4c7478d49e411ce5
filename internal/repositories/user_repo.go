package repositories

import (
	"context"

	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository reads operator identities and their daily limits. User CRUD
// belongs to the admin system; this core only looks identities up.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.Postgres) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// GetActiveByID fetches an active user; disabled accounts read as ErrNotFound.
func (r *UserRepository) GetActiveByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, name, role, is_active, max_searches_per_day, max_exports_per_day, created_at, updated_at
		FROM users WHERE id = $1 AND is_active = true
	`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.IsActive,
		&user.MaxSearchesPerDay, &user.MaxExportsPerDay,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}
