package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
feed:
  url: ws://sensor-hub:8765
api:
  base_url: http://sensor-hub:8080
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Feed.URL != "ws://sensor-hub:8765" {
		t.Errorf("Feed.URL = %q", cfg.Feed.URL)
	}
	if cfg.Feed.ConnectTimeout.Duration() != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want default 10s", cfg.Feed.ConnectTimeout.Duration())
	}
	if cfg.Feed.PingInterval.Duration() != 30*time.Second {
		t.Errorf("PingInterval = %v, want default 30s", cfg.Feed.PingInterval.Duration())
	}
	if cfg.Feed.ReconnectBase.Duration() != 3*time.Second {
		t.Errorf("ReconnectBase = %v, want default 3s", cfg.Feed.ReconnectBase.Duration())
	}
	if cfg.Feed.ReconnectGrow != 1.5 {
		t.Errorf("ReconnectGrow = %v, want default 1.5", cfg.Feed.ReconnectGrow)
	}
	if cfg.Feed.MaxReconnects != 10 {
		t.Errorf("MaxReconnects = %d, want default 10", cfg.Feed.MaxReconnects)
	}
	if cfg.API.Timeout.Duration() != 5*time.Second {
		t.Errorf("API.Timeout = %v, want default 5s", cfg.API.Timeout.Duration())
	}
	if cfg.API.CacheTTL.Duration() != 5*time.Minute {
		t.Errorf("API.CacheTTL = %v, want default 5m", cfg.API.CacheTTL.Duration())
	}
	if cfg.Archive.MaxRecords != 1000 {
		t.Errorf("Archive.MaxRecords = %d, want default 1000", cfg.Archive.MaxRecords)
	}
	if cfg.Log.GetLevel() != "info" {
		t.Errorf("Log level = %q, want info", cfg.Log.GetLevel())
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want default 5s", cfg.GetShutdownTimeout())
	}
}

func TestLoadParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
feed:
  connect_timeout: 2s
  reconnect_base: 500ms
  reconnect_max: 1m
api:
  cache_ttl: 90s
poll:
  interval: 10s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Feed.ConnectTimeout.Duration() != 2*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.Feed.ConnectTimeout.Duration())
	}
	if cfg.Feed.ReconnectBase.Duration() != 500*time.Millisecond {
		t.Errorf("ReconnectBase = %v", cfg.Feed.ReconnectBase.Duration())
	}
	if cfg.Feed.ReconnectMax.Duration() != time.Minute {
		t.Errorf("ReconnectMax = %v", cfg.Feed.ReconnectMax.Duration())
	}
	if cfg.API.CacheTTL.Duration() != 90*time.Second {
		t.Errorf("CacheTTL = %v", cfg.API.CacheTTL.Duration())
	}
	if cfg.Poll.Interval.Duration() != 10*time.Second {
		t.Errorf("Poll.Interval = %v", cfg.Poll.Interval.Duration())
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
feed:
  connect_timeout: soon
`))
	if err == nil {
		t.Fatal("expected an error for a bad duration")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LDRMON_FEED_URL", "ws://from-env:8765")

	cfg, err := Load(writeConfig(t, `
feed:
  url: ${LDRMON_FEED_URL}
api:
  base_url: ${LDRMON_API_URL:http://fallback:8080}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Feed.URL != "ws://from-env:8765" {
		t.Errorf("Feed.URL = %q, want value from environment", cfg.Feed.URL)
	}
	if cfg.API.BaseURL != "http://fallback:8080" {
		t.Errorf("API.BaseURL = %q, want the inline default", cfg.API.BaseURL)
	}
}
