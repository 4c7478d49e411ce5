package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Server     ServerConfig
	Auth       AuthConfig
	Quota      QuotaConfig
	Export     ExportConfig
}

type PostgresConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ClickHouseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	DialTimeout time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
}

type QuotaConfig struct {
	// UTCOffset anchors the daily ledger's calendar date. Defaults to +5h30m
	// (IST); configurable so the reset boundary is portable and testable.
	UTCOffset          time.Duration
	DefaultMaxSearches int
	DefaultMaxExports  int
	UsageRetentionDays int
}

type ExportConfig struct {
	Dir     string
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Postgres: PostgresConfig{
			Host:              getEnv("PG_HOST", "localhost"),
			Port:              getEnvAsInt("PG_PORT", 5432),
			User:              getEnv("PG_USER", "postgres"),
			Password:          getEnv("PG_PASSWORD", ""),
			Name:              getEnv("PG_NAME", "datatrace"),
			SSLMode:           getEnv("PG_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("PG_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("PG_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("PG_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("PG_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("PG_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		ClickHouse: ClickHouseConfig{
			Host:        getEnv("CH_HOST", "localhost"),
			Port:        getEnvAsInt("CH_PORT", 9000),
			Database:    getEnv("CH_DATABASE", "datatrace"),
			User:        getEnv("CH_USER", "default"),
			Password:    getEnv("CH_PASSWORD", ""),
			DialTimeout: getEnvAsDuration("CH_DIAL_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		Quota: QuotaConfig{
			UTCOffset:          getEnvAsDuration("QUOTA_UTC_OFFSET", 5*time.Hour+30*time.Minute),
			DefaultMaxSearches: getEnvAsInt("QUOTA_MAX_SEARCHES_PER_DAY", 500),
			DefaultMaxExports:  getEnvAsInt("QUOTA_MAX_EXPORTS_PER_DAY", 20),
			UsageRetentionDays: getEnvAsInt("QUOTA_USAGE_RETENTION_DAYS", 90),
		},
		Export: ExportConfig{
			Dir:     getEnv("EXPORT_DIR", "./exports"),
			MaxRows: getEnvAsInt("EXPORT_MAX_ROWS", 100000),
		},
	}

	if cfg.Postgres.Password == "" {
		return nil, fmt.Errorf("PG_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// QuotaLocation returns the fixed-offset timezone anchoring the daily ledger.
func (c *QuotaConfig) QuotaLocation() *time.Location {
	offset := int(c.UTCOffset / time.Second)
	return time.FixedZone("QUOTA", offset)
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
