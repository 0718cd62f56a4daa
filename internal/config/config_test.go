package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.NLUMode != "auto" || cfg.GatewayMode != "auto" {
		t.Fatalf("modes = %q/%q, want auto/auto", cfg.NLUMode, cfg.GatewayMode)
	}
	if cfg.BusinessHoursEnabled {
		t.Fatal("business hours gating should default off")
	}
	if len(cfg.BusinessNumbers) != 0 {
		t.Fatalf("BusinessNumbers = %v, want empty", cfg.BusinessNumbers)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("APP_SESSION_TTL", "48h")
	t.Setenv("BUSINESS_WHATSAPP_NUMBERS", "5511888880000, 5511888880001")
	t.Setenv("BUSINESS_HOURS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9191")
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Fatalf("SessionTTL = %v, want 48h", cfg.SessionTTL)
	}
	if len(cfg.BusinessNumbers) != 2 || cfg.BusinessNumbers[0] != "5511888880000" {
		t.Fatalf("BusinessNumbers = %v", cfg.BusinessNumbers)
	}
	if !cfg.BusinessHoursEnabled {
		t.Fatal("BusinessHoursEnabled should be true")
	}
}

func TestLoadRejectsTinyTTL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SESSION_TTL", "10s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for sub-minute TTL")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "fifteen")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_SESSION_TTL",
		"APP_SWEEP_INTERVAL",
		"APP_DATA_DIR",
		"APP_HISTORY_CONTEXT_LIMIT",
		"DATABASE_URL",
		"NLU_MODE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"GATEWAY_MODE",
		"ZAPI_BASE_URL",
		"ZAPI_INSTANCE_ID",
		"ZAPI_TOKEN",
		"ADMIN_WHATSAPP_NUMBER",
		"BUSINESS_WHATSAPP_NUMBERS",
		"BUSINESS_HOURS_ENABLED",
		"BUSINESS_HOURS_TIMEZONE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
