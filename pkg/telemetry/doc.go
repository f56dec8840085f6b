// Package telemetry provides the observability core of the finsim service.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry with OTLP gRPC export), metrics (Prometheus), and an async
// domain-event publisher behind one bootstrap call.
//
// # Bootstrap
//
// Initialize telemetry exactly once at process startup:
//
//	cfg := telemetry.FromEnv()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.Setup(cfg)
//	if err != nil {
//	    // a second Setup call fails with ErrAlreadyInitialized
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Setup installs the tracer provider and W3C propagators globally and
// returns an owned handle; all other wiring is explicit. The handle is
// passed to the HTTP server, which registers request instrumentation.
//
// # Log wire format
//
// Every log line is one self-contained JSON object on stdout with fixed
// keys timestamp, level, logger, message and service. When the context
// passed to a log call carries an active span, trace_id and span_id are
// stamped onto the line; the two appear together or not at all:
//
//	logger := tel.Logger.Named("simulation")
//	logger.WithFields(telemetry.Fields{"event": "simulation_started"}).
//	    Info(ctx, "Starting financing simulation")
//
// Extra fields are flattened at the top level. A field key that collides
// with a fixed schema key panics: that is a programming error, not a
// runtime condition. Values the JSON encoder rejects are coerced to
// strings so a log call never fails.
//
// Errors attach as a nested exception object:
//
//	logger.WithException(err).Error(ctx, "Simulation failed")
//
// # Trace context
//
// TraceContextFrom reads the active span identifiers from a context
// without creating a span and without requiring an initialized provider:
//
//	if tc, ok := telemetry.TraceContextFrom(ctx); ok {
//	    // tc.TraceID, tc.SpanID
//	}
package telemetry
