package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"PROCTOR_HTTP_PORT",
	"PROCTOR_SQLITE_DSN",
	"PROCTOR_HEARTBEAT_INTERVAL",
	"PROCTOR_STALENESS_MULTIPLIER",
	"PROCTOR_MAX_VIOLATIONS",
	"PROCTOR_SWEEP_INTERVAL",
	"PROCTOR_SIGNAL_RATE_PER_MINUTE",
	"PROCTOR_SIGNAL_BURST",
	"PROCTOR_EVENT_BUFFER",
}

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:proctor.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.HeartbeatInterval != 30*time.Second {
			t.Fatalf("expected default heartbeat interval 30s, got %v", cfg.HeartbeatInterval)
		}
		if cfg.StalenessMultiplier != 2.5 {
			t.Fatalf("expected default staleness multiplier 2.5, got %v", cfg.StalenessMultiplier)
		}
		if cfg.MaxViolations != 3 {
			t.Fatalf("expected default violation threshold 3, got %d", cfg.MaxViolations)
		}
		if cfg.SweepInterval != time.Second {
			t.Fatalf("expected default sweep interval 1s, got %v", cfg.SweepInterval)
		}
	})

	t.Run("honours explicit overrides", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PROCTOR_HTTP_PORT", "9090")
		t.Setenv("PROCTOR_SQLITE_DSN", "file::memory:?cache=shared")
		t.Setenv("PROCTOR_HEARTBEAT_INTERVAL", "10s")
		t.Setenv("PROCTOR_STALENESS_MULTIPLIER", "3.0")
		t.Setenv("PROCTOR_MAX_VIOLATIONS", "5")
		t.Setenv("PROCTOR_SWEEP_INTERVAL", "250ms")
		t.Setenv("PROCTOR_SIGNAL_RATE_PER_MINUTE", "120")
		t.Setenv("PROCTOR_SIGNAL_BURST", "20")
		t.Setenv("PROCTOR_EVENT_BUFFER", "128")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file::memory:?cache=shared" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.HeartbeatInterval != 10*time.Second {
			t.Fatalf("expected heartbeat interval 10s, got %v", cfg.HeartbeatInterval)
		}
		if cfg.StalenessMultiplier != 3.0 {
			t.Fatalf("expected staleness multiplier 3.0, got %v", cfg.StalenessMultiplier)
		}
		if cfg.MaxViolations != 5 {
			t.Fatalf("expected violation threshold 5, got %d", cfg.MaxViolations)
		}
		if cfg.SweepInterval != 250*time.Millisecond {
			t.Fatalf("expected sweep interval 250ms, got %v", cfg.SweepInterval)
		}
		if cfg.SignalRatePerMinute != 120 || cfg.SignalBurst != 20 {
			t.Fatalf("unexpected rate limit settings: %d/%d", cfg.SignalRatePerMinute, cfg.SignalBurst)
		}
		if cfg.EventBuffer != 128 {
			t.Fatalf("expected event buffer 128, got %d", cfg.EventBuffer)
		}
	})

	t.Run("collects every malformed value into one error", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PROCTOR_HTTP_PORT", "not-a-port")
		t.Setenv("PROCTOR_HEARTBEAT_INTERVAL", "-5s")
		t.Setenv("PROCTOR_STALENESS_MULTIPLIER", "0.5")
		t.Setenv("PROCTOR_MAX_VIOLATIONS", "zero")

		_, err := Load()
		if err == nil {
			t.Fatal("expected an error for malformed values")
		}
		for _, key := range []string{
			"PROCTOR_HTTP_PORT",
			"PROCTOR_HEARTBEAT_INTERVAL",
			"PROCTOR_STALENESS_MULTIPLIER",
			"PROCTOR_MAX_VIOLATIONS",
		} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to name %s, got %q", key, err.Error())
			}
		}
	})
}
