package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_LeagueFeedRequiresBaseURLWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("LEAGUE_FEED_ENABLED", "true")
	t.Setenv("LEAGUE_FEED_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when LEAGUE_FEED_ENABLED=true without LEAGUE_FEED_BASE_URL")
	}
}

func TestLoad_LeagueFeedConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("LEAGUE_FEED_ENABLED", "true")
	t.Setenv("LEAGUE_FEED_BASE_URL", "https://feed.example.com")
	t.Setenv("LEAGUE_FEED_TOKEN", "token-123")
	t.Setenv("LEAGUE_FEED_TIMEOUT", "9s")
	t.Setenv("LEAGUE_FEED_MAX_RETRIES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.LeagueFeedEnabled {
		t.Fatalf("expected LeagueFeedEnabled=true")
	}
	if cfg.LeagueFeedBaseURL != "https://feed.example.com" {
		t.Fatalf("unexpected LeagueFeedBaseURL: %q", cfg.LeagueFeedBaseURL)
	}
	if cfg.LeagueFeedToken != "token-123" {
		t.Fatalf("unexpected LeagueFeedToken")
	}
	if cfg.LeagueFeedTimeout != 9*time.Second {
		t.Fatalf("unexpected LeagueFeedTimeout: %s", cfg.LeagueFeedTimeout)
	}
	if cfg.LeagueFeedMaxRetries != 2 {
		t.Fatalf("unexpected LeagueFeedMaxRetries: %d", cfg.LeagueFeedMaxRetries)
	}
}

func TestLoad_SyncDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.SyncEnabled {
		t.Fatalf("expected SyncEnabled=true by default")
	}
	if cfg.SyncBatchSize != 500 {
		t.Fatalf("unexpected SyncBatchSize: %d", cfg.SyncBatchSize)
	}
	if cfg.SyncMaxWorkers != 4 {
		t.Fatalf("unexpected SyncMaxWorkers: %d", cfg.SyncMaxWorkers)
	}
}

func TestLoad_SyncBatchSizeValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("SYNC_BATCH_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for SYNC_BATCH_SIZE=0")
	}
}

func TestLoad_InternalJobTokenRequiredInProd(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("INTERNAL_JOB_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when APP_ENV=prod without INTERNAL_JOB_TOKEN")
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}
