package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("PG_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Quota.UTCOffset != 5*time.Hour+30*time.Minute {
		t.Errorf("Quota.UTCOffset: got %v, want 5h30m", cfg.Quota.UTCOffset)
	}
	if cfg.Quota.UsageRetentionDays != 90 {
		t.Errorf("Quota.UsageRetentionDays: got %d, want 90", cfg.Quota.UsageRetentionDays)
	}
	if cfg.ClickHouse.Port != 9000 {
		t.Errorf("ClickHouse.Port: got %d, want 9000", cfg.ClickHouse.Port)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("Postgres.MaxConns: got %d, want 25", cfg.Postgres.MaxConns)
	}
}

func TestLoad_RequiresSecrets(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Fatal("Load() without JWT_SECRET should fail")
	}

	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	defer os.Clearenv()
	if _, err := Load(); err == nil {
		t.Fatal("Load() without PG_PASSWORD should fail")
	}
}

func TestLoad_CustomQuotaOffset(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("PG_PASSWORD", "test")
	os.Setenv("QUOTA_UTC_OFFSET", "0s")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Quota.UTCOffset != 0 {
		t.Errorf("Quota.UTCOffset: got %v, want 0", cfg.Quota.UTCOffset)
	}

	loc := cfg.Quota.QuotaLocation()
	if got := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC).In(loc).Hour(); got != 23 {
		t.Errorf("zero-offset location changed the hour: got %d, want 23", got)
	}
}

func TestQuotaLocation_FixedOffset(t *testing.T) {
	q := QuotaConfig{UTCOffset: 5*time.Hour + 30*time.Minute}
	loc := q.QuotaLocation()

	// 20:00 UTC is already past midnight of the next day at +5:30.
	utc := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	local := utc.In(loc)
	if local.Day() != 11 || local.Hour() != 1 || local.Minute() != 30 {
		t.Errorf("unexpected local time: %v", local)
	}
}

func TestValidateJWTSecret(t *testing.T) {
	if err := validateJWTSecret("short", "development"); err == nil {
		t.Error("short secret should fail in development")
	}
	if err := validateJWTSecret("sixteen-chars-ok", "production"); err == nil {
		t.Error("16-char secret should fail in production")
	}
	if err := validateJWTSecret("a-perfectly-long-secret-of-32-ch", "production"); err != nil {
		t.Errorf("32-char secret should pass in production: %v", err)
	}
}
