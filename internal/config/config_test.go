package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio-access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("JWT_SECRET", "config-test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Fatalf("api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("sslmode = %q, want disable", cfg.Database.SSLMode)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("token ttl = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("JWT_TOKEN_TTL", "30m")
	t.Setenv("RATELIMIT_REQUESTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Fatalf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("database host = %q", cfg.Database.Host)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("token ttl = %v, want 30m", cfg.Auth.TokenTTL)
	}
	if cfg.RateLimit.Requests != 5 {
		t.Fatalf("ratelimit requests = %d, want 5", cfg.RateLimit.Requests)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio-access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("missing jwt secret accepted")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Name:     "skillbridge",
		User:     "svc",
		Password: "pw",
		SSLMode:  "require",
	}
	want := "host=db port=5432 user=svc password=pw dbname=skillbridge sslmode=require"
	if got := d.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
