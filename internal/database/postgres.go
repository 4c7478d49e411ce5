package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the relational store handle: users, search logs, daily usage
// counters and audit rows live here.
type Postgres struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgres(cfg *config.PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("postgres connection established",
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
	)

	return &Postgres{Pool: pool, logger: logger}, nil
}

func (db *Postgres) Close() {
	db.logger.Info("closing postgres connection pool")
	db.Pool.Close()
}

func (db *Postgres) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

func (db *Postgres) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}
