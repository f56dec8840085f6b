package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestTraceContextFromAbsent(t *testing.T) {
	if _, ok := TraceContextFrom(context.Background()); ok {
		t.Error("TraceContextFrom(background) reported an active span")
	}
	if _, ok := TraceContextFrom(nil); ok { //nolint:staticcheck // nil ctx is part of the contract
		t.Error("TraceContextFrom(nil) reported an active span")
	}
}

func TestTraceContextFromActiveSpan(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tc, ok := TraceContextFrom(ctx)
	if !ok {
		t.Fatal("TraceContextFrom did not find the active span")
	}
	if tc.TraceID != span.SpanContext().TraceID().String() {
		t.Errorf("TraceID = %q, want %q", tc.TraceID, span.SpanContext().TraceID().String())
	}
	if tc.SpanID != span.SpanContext().SpanID().String() {
		t.Errorf("SpanID = %q, want %q", tc.SpanID, span.SpanContext().SpanID().String())
	}
	if tc.TraceID == "" || tc.SpanID == "" {
		t.Error("trace and span ids must be present together")
	}
}

func TestTraceContextFromEndedSpanContext(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	span.End()

	// The span context stays readable after End; the accessor only reads.
	if _, ok := TraceContextFrom(ctx); !ok {
		t.Error("span context should remain readable after the span ends")
	}
}
