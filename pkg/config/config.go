package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/finsim/finsim/pkg/telemetry"
)

// Config is the full service configuration, loaded once at startup from
// environment variables and immutable afterward.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `validate:"required"`

	// FilterPaths are request paths exempted from request logging
	// (exact match). Health checks and other noise endpoints belong here.
	FilterPaths []string

	// RatesURL is the endpoint of the external rates API consulted during
	// financing simulations. Empty disables the lookup entirely; the
	// simulator then always uses the fallback rate.
	RatesURL string `validate:"omitempty,url"`

	// RatesTimeout bounds each external rate lookup.
	RatesTimeout time.Duration `validate:"min=0"`

	// FallbackAnnualRate is the simulated annual rate (percent) used when
	// the external rates API is unavailable.
	FallbackAnnualRate float64 `validate:"gt=0"`

	// DatabasePath is the sqlite file holding simulation history.
	// Empty disables persistence.
	DatabasePath string

	// TrustProxyHeaders makes the request logger take the client IP from
	// forwarding headers instead of the immediate peer address. Off by
	// default: peer address is the lowest-trust source.
	TrustProxyHeaders bool

	// Telemetry carries the observability configuration.
	Telemetry *telemetry.Config `validate:"required"`
}

// DefaultFilterPaths are the noise endpoints excluded from request logging.
// The root path is intentionally not filtered.
var DefaultFilterPaths = []string{"/health", "/metrics", "/docs"}

// Load builds the configuration from environment variables:
//
//	FINSIM_ADDR            HTTP listen address (default :8000)
//	FINSIM_FILTER_PATHS    comma-separated paths exempt from request logging
//	FINSIM_RATES_URL       external rates API endpoint
//	FINSIM_RATES_TIMEOUT   rate lookup timeout (Go duration, default 5s)
//	FINSIM_FALLBACK_RATE   fallback annual rate in percent (default 11.5)
//	FINSIM_DB_PATH         sqlite path for simulation history (default finsim.db)
//	FINSIM_TRUST_PROXY     trust forwarding headers for client IP (default false)
//
// plus the telemetry variables documented in telemetry.FromEnv.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:               getEnv("FINSIM_ADDR", ":8000"),
		FilterPaths:        DefaultFilterPaths,
		RatesURL:           getEnv("FINSIM_RATES_URL", "http://rates-api:8080/v1/taxa"),
		RatesTimeout:       5 * time.Second,
		FallbackAnnualRate: 11.5,
		DatabasePath:       getEnv("FINSIM_DB_PATH", "finsim.db"),
		Telemetry:          telemetry.FromEnv(),
	}

	if v := os.Getenv("FINSIM_FILTER_PATHS"); v != "" {
		cfg.FilterPaths = splitPaths(v)
	}
	if v := os.Getenv("FINSIM_RATES_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FINSIM_RATES_TIMEOUT: %w", err)
		}
		cfg.RatesTimeout = d
	}
	if v := os.Getenv("FINSIM_FALLBACK_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FINSIM_FALLBACK_RATE: %w", err)
		}
		cfg.FallbackAnnualRate = rate
	}
	if v := os.Getenv("FINSIM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FINSIM_TRUST_PROXY: %w", err)
		}
		cfg.TrustProxyHeaders = trust
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the nested telemetry config.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.Telemetry.Validate()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitPaths(v string) []string {
	var paths []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
