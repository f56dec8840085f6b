package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q, want :8000", cfg.Addr)
	}
	if len(cfg.FilterPaths) != len(DefaultFilterPaths) {
		t.Errorf("FilterPaths = %v, want defaults %v", cfg.FilterPaths, DefaultFilterPaths)
	}
	if cfg.RatesTimeout != 5*time.Second {
		t.Errorf("RatesTimeout = %v, want 5s", cfg.RatesTimeout)
	}
	if cfg.FallbackAnnualRate != 11.5 {
		t.Errorf("FallbackAnnualRate = %v, want 11.5", cfg.FallbackAnnualRate)
	}
	if cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default to false")
	}
	if cfg.Telemetry == nil {
		t.Fatal("Telemetry config missing")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FINSIM_ADDR", ":9090")
	t.Setenv("FINSIM_FILTER_PATHS", "/health, /internal/status,,")
	t.Setenv("FINSIM_RATES_TIMEOUT", "250ms")
	t.Setenv("FINSIM_FALLBACK_RATE", "9.9")
	t.Setenv("FINSIM_TRUST_PROXY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	want := []string{"/health", "/internal/status"}
	if len(cfg.FilterPaths) != len(want) {
		t.Fatalf("FilterPaths = %v, want %v", cfg.FilterPaths, want)
	}
	for i, p := range want {
		if cfg.FilterPaths[i] != p {
			t.Errorf("FilterPaths[%d] = %q, want %q", i, cfg.FilterPaths[i], p)
		}
	}
	if cfg.RatesTimeout != 250*time.Millisecond {
		t.Errorf("RatesTimeout = %v, want 250ms", cfg.RatesTimeout)
	}
	if cfg.FallbackAnnualRate != 9.9 {
		t.Errorf("FallbackAnnualRate = %v, want 9.9", cfg.FallbackAnnualRate)
	}
	if !cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should be true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timeout", "FINSIM_RATES_TIMEOUT", "soon"},
		{"bad fallback rate", "FINSIM_FALLBACK_RATE", "lots"},
		{"bad trust flag", "FINSIM_TRUST_PROXY", "maybe"},
		{"bad rates url", "FINSIM_RATES_URL", "not a url"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
