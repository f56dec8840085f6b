package simulation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrRatesDisabled is returned when no rates API endpoint is configured.
var ErrRatesDisabled = errors.New("simulation: rates lookup disabled")

// RateLookup resolves the current annual interest rate (percent).
type RateLookup interface {
	AnnualRate(ctx context.Context) (float64, error)
}

// RatesConfig configures the external rates API client.
type RatesConfig struct {
	// URL is the rates API endpoint. Empty disables the lookup.
	URL string

	// Timeout bounds each lookup end to end.
	Timeout time.Duration
}

// rateResponse is the rates API payload.
type rateResponse struct {
	AnnualRate float64 `json:"taxa_anual"`
}

// RatesClient queries the external rates API. Outbound requests carry the
// active trace context, and a circuit breaker stops hammering the API
// once it is known to be down.
type RatesClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

// NewRatesClient creates a rates API client.
func NewRatesClient(cfg RatesConfig) *RatesClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rates-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	return &RatesClient{
		http:    client,
		breaker: cb,
		url:     cfg.URL,
	}
}

// AnnualRate fetches the current annual rate from the rates API.
func (c *RatesClient) AnnualRate(ctx context.Context) (float64, error) {
	if c.url == "" {
		return 0, ErrRatesDisabled
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body rateResponse

		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&body).
			Get(c.url)
		if err != nil {
			return nil, fmt.Errorf("rates api request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("rates api returned %s", resp.Status())
		}
		if body.AnnualRate <= 0 {
			return nil, fmt.Errorf("rates api returned non-positive rate %g", body.AnnualRate)
		}

		return body.AnnualRate, nil
	})
	if err != nil {
		return 0, err
	}

	return result.(float64), nil
}
