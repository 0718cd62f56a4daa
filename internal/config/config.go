package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the quote bot service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	SessionTTL    time.Duration
	SweepInterval time.Duration
	DatabaseURL   string

	DataDir             string
	HistoryContextLimit int

	NLUMode     string
	OpenAIKey   string
	OpenAIURL   string
	OpenAIModel string

	GatewayMode     string
	ZAPIBaseURL     string
	ZAPIInstanceID  string
	ZAPIToken       string
	AdminNumber     string
	BusinessNumbers []string

	BusinessHoursEnabled  bool
	BusinessHoursTimezone string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "cotabot"),
		AllowAnyOrigin:        false,
		DatabaseURL:           stringsTrimSpace("DATABASE_URL"),
		DataDir:               envOrDefault("APP_DATA_DIR", "data"),
		HistoryContextLimit:   10,
		NLUMode:               envOrDefault("NLU_MODE", "auto"),
		OpenAIKey:             stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIURL:             envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:           envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GatewayMode:           envOrDefault("GATEWAY_MODE", "auto"),
		ZAPIBaseURL:           envOrDefault("ZAPI_BASE_URL", "https://api.z-api.io"),
		ZAPIInstanceID:        stringsTrimSpace("ZAPI_INSTANCE_ID"),
		ZAPIToken:             stringsTrimSpace("ZAPI_TOKEN"),
		AdminNumber:           stringsTrimSpace("ADMIN_WHATSAPP_NUMBER"),
		BusinessHoursEnabled:  false,
		BusinessHoursTimezone: envOrDefault("BUSINESS_HOURS_TIMEZONE", "America/Sao_Paulo"),
		ShutdownTimeout:       15 * time.Second,
		SessionTTL:            24 * time.Hour,
		SweepInterval:         time.Hour,
	}
	if raw := stringsTrimSpace("BUSINESS_WHATSAPP_NUMBERS"); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				cfg.BusinessNumbers = append(cfg.BusinessNumbers, n)
			}
		}
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("APP_SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("APP_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryContextLimit, err = intFromEnv("APP_HISTORY_CONTEXT_LIMIT", cfg.HistoryContextLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.BusinessHoursEnabled, err = boolFromEnv("BUSINESS_HOURS_ENABLED", cfg.BusinessHoursEnabled)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("APP_SESSION_TTL must be at least 1m")
	}
	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("APP_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.HistoryContextLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_CONTEXT_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
