package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want sqlite", cfg.DatabaseDriver)
	}
	if cfg.DefaultLLM != "anthropic" {
		t.Errorf("DefaultLLM = %q, want anthropic", cfg.DefaultLLM)
	}
	if cfg.WidgetMaxTokens != 1024 {
		t.Errorf("WidgetMaxTokens = %d, want 1024", cfg.WidgetMaxTokens)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want 1m", cfg.RateLimitWindow)
	}
	if cfg.TracingEnabled {
		t.Errorf("TracingEnabled = true, want false")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("WIDGET_MAX_TOKENS", "4096")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("DatabaseDriver = %q, want postgres", cfg.DatabaseDriver)
	}
	if cfg.WidgetMaxTokens != 4096 {
		t.Errorf("WidgetMaxTokens = %d, want 4096", cfg.WidgetMaxTokens)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v, want 30s", cfg.RateLimitWindow)
	}
	if !cfg.TracingEnabled {
		t.Errorf("TracingEnabled = false, want true")
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("WIDGET_MAX_TOKENS", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()

	if cfg.WidgetMaxTokens != 1024 {
		t.Errorf("WidgetMaxTokens = %d, want default 1024", cfg.WidgetMaxTokens)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want default 1m", cfg.RateLimitWindow)
	}
}
