package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/datatrace-io/datatrace/internal/config"
)

// ClickHouse is the analytical store handle. It executes compiled predicates
// over the person dataset and stores search performance metrics; the engine
// never writes person rows.
type ClickHouse struct {
	Conn     driver.Conn
	Database string
	logger   *slog.Logger
}

func NewClickHouse(cfg *config.ClickHouseConfig, logger *slog.Logger) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time":          60,
			"allow_experimental_analyzer": 1,
			"optimize_move_to_prewhere":   1,
			"use_uncompressed_cache":      0,
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping clickhouse: %w", err)
	}

	logger.Info("clickhouse connection established",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
	)

	return &ClickHouse{Conn: conn, Database: cfg.Database, logger: logger}, nil
}

func (db *ClickHouse) Close() error {
	db.logger.Info("closing clickhouse connection")
	return db.Conn.Close()
}

func (db *ClickHouse) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse health check failed: %w", err)
	}
	return nil
}

// Migrate creates the analytical schema. The pincode column is materialized
// from the first 6-digit token of the address so the virtual field can be
// filtered with an equality comparison; ngram/token bloom indexes accelerate
// the ILIKE-heavy search patterns. All statements are idempotent.
func (db *ClickHouse) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db.Database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.people
		(
			id UUID DEFAULT generateUUIDv4(),
			master_id String,
			mobile String,
			name String,
			fname String,
			address String,
			alt String,
			circle String,
			email String,
			pincode String MATERIALIZED arrayFirst(x -> length(x) = 6, extractAll(address, '\\d+')),
			created_at DateTime DEFAULT now(),
			updated_at DateTime DEFAULT now(),
			INDEX idx_name_ngram name TYPE ngrambf_v1(3, 256, 2) GRANULARITY 4,
			INDEX idx_fname_ngram fname TYPE ngrambf_v1(3, 256, 2) GRANULARITY 4,
			INDEX idx_address_ngram address TYPE ngrambf_v1(3, 256, 2) GRANULARITY 4,
			INDEX idx_email_token email TYPE tokenbf_v1(1024) GRANULARITY 4,
			INDEX idx_circle_token circle TYPE tokenbf_v1(1024) GRANULARITY 4,
			INDEX idx_mobile_token mobile TYPE tokenbf_v1(1024) GRANULARITY 4,
			INDEX idx_alt_token alt TYPE tokenbf_v1(1024) GRANULARITY 4,
			INDEX idx_master_id_token master_id TYPE tokenbf_v1(1024) GRANULARITY 4,
			INDEX idx_pincode_bf pincode TYPE bloom_filter GRANULARITY 4
		)
		ENGINE = MergeTree()
		ORDER BY (mobile, name, master_id)
		SETTINGS index_granularity = 8192`, db.Database),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.search_performance
		(
			query_id String,
			user_id String,
			query_text String,
			execution_time_ms UInt32,
			result_count UInt32,
			timestamp DateTime DEFAULT now()
		)
		ENGINE = MergeTree()
		ORDER BY timestamp`, db.Database),
	}

	for i, stmt := range statements {
		if err := db.Conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info("clickhouse migrations completed")
	return nil
}
