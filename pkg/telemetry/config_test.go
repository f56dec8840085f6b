package telemetry

import (
	"testing"
)

func TestGRPCEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"http with collector port", "http://otel-collector:4318", "otel-collector:4317"},
		{"https with collector port", "https://collector.example.com:4318", "collector.example.com:4317"},
		{"http with custom port", "http://collector:9999", "collector:9999"},
		{"bare host and port", "localhost:4317", "localhost:4317"},
		{"bare host", "otel-collector", "otel-collector:4317"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TracingConfig{Endpoint: tt.endpoint}
			if got := cfg.GRPCEndpoint(); got != tt.want {
				t.Errorf("GRPCEndpoint(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "finsim-staging")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg := FromEnv()

	if cfg.ServiceName != "finsim-staging" {
		t.Errorf("ServiceName = %q, want finsim-staging", cfg.ServiceName)
	}
	if cfg.Tracing.Endpoint != "http://collector:4318" {
		t.Errorf("Tracing.Endpoint = %q", cfg.Tracing.Endpoint)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG (normalized)", cfg.Logging.Level)
	}
	if cfg.Tracing.SamplingRate != 0.25 {
		t.Errorf("Tracing.SamplingRate = %v, want 0.25", cfg.Tracing.SamplingRate)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, true},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, true},
		{"otlp without endpoint", func(c *Config) { c.Tracing.Endpoint = "" }, true},
		{"sampling rate out of range", func(c *Config) { c.Tracing.SamplingRate = 1.5 }, true},
		{"zero event buffer", func(c *Config) { c.Events.BufferSize = 0 }, true},
		{"tracing disabled skips exporter check", func(c *Config) {
			c.Tracing.Enabled = false
			c.Tracing.Exporter = "jaeger"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
