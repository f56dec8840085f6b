package telemetry

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// TraceContext carries the identifiers of an active trace span.
type TraceContext struct {
	// TraceID is the 128-bit trace identifier as a hex string.
	TraceID string

	// SpanID is the 64-bit span identifier as a hex string.
	SpanID string
}

// TraceContextFrom returns the trace and span identifiers of whichever span
// is active in ctx, or ok=false when none is. It never starts a span, has
// no side effects, and is safe to call at any point in request handling,
// including when no tracer provider has been installed.
func TraceContextFrom(ctx context.Context) (TraceContext, bool) {
	if ctx == nil {
		return TraceContext{}, false
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return TraceContext{}, false
	}

	return TraceContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}, true
}

// traceHook stamps trace_id and span_id on every log event whose context
// carries an active span. The two fields appear together or not at all.
type traceHook struct{}

func (traceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	tc, ok := TraceContextFrom(e.GetCtx())
	if !ok {
		return
	}
	e.Str(FieldTraceID, tc.TraceID).Str(FieldSpanID, tc.SpanID)
}
