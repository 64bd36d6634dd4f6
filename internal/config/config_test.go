package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host environments cannot leak
// into the assertions. t.Setenv also restores the old values after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
		"API_BASE_PATH", "DB_PATH", "DISPLAY_LOCALE", "REMOTE_BASE_URL", "REMOTE_TIMEOUT",
		"NOTIFY_CAPACITY", "NOTIFY_LIFETIME", "NOTIFY_REPLAY_WINDOW", "NOTIFY_SWEEP_EVERY",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"RECEIPT_TTL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults = %q/%q/%q", cfg.Port, cfg.GinMode, cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "session.db" || cfg.Locale != "en-GB" {
		t.Fatalf("app defaults = %q/%q", cfg.DBPath, cfg.Locale)
	}
	if cfg.Remote.BaseURL != "http://localhost:9090/api" || cfg.Remote.Timeout != 15*time.Second {
		t.Fatalf("remote defaults = %+v", cfg.Remote)
	}
	if cfg.Notify.Capacity != 3 || cfg.Notify.Lifetime != 30*time.Second ||
		cfg.Notify.ReplayWindow != 5*time.Second || cfg.Notify.SweepEvery != 3*time.Second {
		t.Fatalf("notify defaults = %+v", cfg.Notify)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate defaults = %v/%v", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.ReceiptTTL != 24*time.Hour {
		t.Fatalf("ReceiptTTL = %v", cfg.ReceiptTTL)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 1.0 {
		t.Fatalf("otel defaults = %+v", cfg.OTEL)
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("CORS defaults = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("GIN_MODE", "Test")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("DB_PATH", "/data/shop.db")
	t.Setenv("REMOTE_BASE_URL", "https://fn.example.com/api")
	t.Setenv("NOTIFY_CAPACITY", "5")
	t.Setenv("NOTIFY_LIFETIME", "45s")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RECEIPT_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" || cfg.GinMode != "test" {
		t.Fatalf("server = %q/%q", cfg.Port, cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q; want warning normalized to warn", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("APIBasePath = %q; want normalized /api/v2", cfg.APIBasePath)
	}
	if cfg.Notify.Capacity != 5 || cfg.Notify.Lifetime != 45*time.Second {
		t.Fatalf("notify = %+v", cfg.Notify)
	}
	if cfg.RateRPS != 2.5 {
		t.Fatalf("RateRPS = %v", cfg.RateRPS)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("CORS = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.ReceiptTTL != time.Hour {
		t.Fatalf("ReceiptTTL = %v", cfg.ReceiptTTL)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string][2]string{
		"bad log level":   {"LOG_LEVEL", "verbose"},
		"zero capacity":   {"NOTIFY_CAPACITY", "0"},
		"zero burst":      {"RATE_BURST", "0"},
		"negative rps":    {"RATE_RPS", "-1"},
		"bad ratio":       {"OTEL_TRACES_SAMPLER_ARG", "1.5"},
		"zero receipt":    {"RECEIPT_TTL", "-1s"},
		"zero timeout":    {"REMOTE_TIMEOUT", "-5s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoad_UnknownGinModeFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GIN_MODE", "turbo")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q; want release fallback", cfg.GinMode)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api//":  "/api",
		" /api/v1 ": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "bogus")
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("MustLoad did not panic")
		}
		if err, ok := r.(error); !ok || !strings.Contains(err.Error(), "LOG_LEVEL") {
			t.Fatalf("panic value = %v", r)
		}
	}()
	MustLoad()
}
