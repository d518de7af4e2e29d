package config

import (
	"os"
	"testing"
	"time"

	"ytkit/internal/core/scheduler"
)

func TestFromEnv_DefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("YT_MAX_CONNECTIONS")
	os.Unsetenv("YT_RETRIES")
	os.Unsetenv("YT_TIMEOUT_SECONDS")

	cfg := FromEnv()
	if cfg.MaxConnections != scheduler.DefaultMaxConnections {
		t.Fatalf("expected default max connections, got %d", cfg.MaxConnections)
	}
	if cfg.Retries != scheduler.DefaultRetries {
		t.Fatalf("expected default retries, got %d", cfg.Retries)
	}
	if cfg.Timeout != scheduler.DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
}

func TestFromEnv_OverridesFromEnvironment(t *testing.T) {
	os.Setenv("YT_MAX_CONNECTIONS", "10")
	os.Setenv("YT_RETRIES", "2")
	os.Setenv("YT_TIMEOUT_SECONDS", "30")
	defer func() {
		os.Unsetenv("YT_MAX_CONNECTIONS")
		os.Unsetenv("YT_RETRIES")
		os.Unsetenv("YT_TIMEOUT_SECONDS")
	}()

	cfg := FromEnv()
	if cfg.MaxConnections != 10 {
		t.Fatalf("expected 10, got %d", cfg.MaxConnections)
	}
	if cfg.Retries != 2 {
		t.Fatalf("expected 2, got %d", cfg.Retries)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.Timeout)
	}
}

func TestFromEnv_IgnoresInvalidValues(t *testing.T) {
	os.Setenv("YT_MAX_CONNECTIONS", "not-a-number")
	defer os.Unsetenv("YT_MAX_CONNECTIONS")

	cfg := FromEnv()
	if cfg.MaxConnections != scheduler.DefaultMaxConnections {
		t.Fatalf("expected fallback to default, got %d", cfg.MaxConnections)
	}
}
