package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
)

// Telemetry aggregates the observability components of the finsim service.
// It is created once by Setup at process start and passed explicitly to
// whatever needs it; nothing reads it from mutable package globals.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// ErrAlreadyInitialized is returned when Setup is called more than once in
// a process. Double initialization is a configuration error: it would
// install duplicate providers and double-register middleware.
var ErrAlreadyInitialized = errors.New("telemetry: already initialized for this process")

var installed atomic.Bool

// Setup performs the one-time telemetry bootstrap: structured logger,
// tracer provider with OTLP export and W3C propagation, metrics registry,
// and event publisher. It must be called at most once per process; a
// second call fails with ErrAlreadyInitialized.
func Setup(cfg *Config) (*Telemetry, error) {
	if !installed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	tel, err := newTelemetry(cfg)
	if err != nil {
		installed.Store(false)
		return nil, err
	}
	return tel, nil
}

// newTelemetry wires the components without the process-wide guard.
func newTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}
	events.WithMetrics(metrics)

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context,
// or nil when none is attached.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components, flushing
// pending spans and draining buffered events.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Shutdown in reverse order of initialization
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	return t.Tracer.Shutdown(ctx)
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}
