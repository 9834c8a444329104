package config_test

import (
	"testing"
	"time"

	"github.com/iho/taxledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.NumberWidth != 6 {
		t.Fatalf("expected default number width 6, got %d", cfg.NumberWidth)
	}

	if cfg.TaxCodeCacheTTL != 10*time.Minute {
		t.Fatalf("expected default tax code cache TTL 10m, got %s", cfg.TaxCodeCacheTTL)
	}

	if !cfg.OutboxEnabled || cfg.OutboxBatchSize != 100 {
		t.Fatalf("expected outbox enabled with batch 100, got enabled=%v batch=%d", cfg.OutboxEnabled, cfg.OutboxBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DOCUMENT_NUMBER_WIDTH", "8")
	t.Setenv("BASE_CURRENCY", "SGD")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("OUTBOX_ENABLED", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}

	if cfg.NumberWidth != 8 || cfg.BaseCurrency != "SGD" {
		t.Fatalf("expected document settings override, got width=%d currency=%s", cfg.NumberWidth, cfg.BaseCurrency)
	}

	if !cfg.AutoMigrate || cfg.OutboxEnabled {
		t.Fatalf("expected flags override, got auto_migrate=%v outbox=%v", cfg.AutoMigrate, cfg.OutboxEnabled)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"duration", "HTTP_READ_TIMEOUT", "not-a-duration"},
		{"integer", "DOCUMENT_NUMBER_WIDTH", "wide"},
		{"bool", "AUTO_MIGRATE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for invalid %s", tt.name)
			}
		})
	}
}
