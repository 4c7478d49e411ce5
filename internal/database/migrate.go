package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/datatrace-io/datatrace/internal/config"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigratePostgres runs the embedded goose migrations against the relational
// store. goose wants a database/sql handle, so a short-lived lib/pq connection
// is opened alongside the pgx pool.
func MigratePostgres(cfg *config.PostgresConfig, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("unable to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("unable to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("postgres migrations failed: %w", err)
	}

	logger.Info("postgres migrations completed")
	return nil
}
