package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Wire field names. Downstream log indexing filters on these exact keys,
// so they are the compatibility-sensitive part of the log contract.
const (
	FieldTimestamp = "timestamp"
	FieldLevel     = "level"
	FieldLogger    = "logger"
	FieldMessage   = "message"
	FieldService   = "service"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldException = "exception"
)

// reservedFields are the fixed schema keys that extra fields must not shadow.
var reservedFields = map[string]bool{
	FieldTimestamp: true,
	FieldLevel:     true,
	FieldLogger:    true,
	FieldMessage:   true,
	FieldService:   true,
	FieldTraceID:   true,
	FieldSpanID:    true,
	FieldException: true,
}

// Fields is an open mapping of extra key/value pairs merged at the top
// level of a log line. Keys colliding with the fixed schema are rejected.
type Fields map[string]interface{}

// maxStackFrames caps the exception stack; dropped frames are flagged with
// an explicit truncated marker instead of disappearing silently.
const maxStackFrames = 32

// Logger wraps zerolog.Logger with the finsim log schema: single-line JSON
// with fixed keys, flattened extra fields, and trace correlation via the
// context passed to each log call.
type Logger struct {
	zlog   zerolog.Logger
	config LoggingConfig
}

// loggerContextKey is the context key for logger instances.
type loggerContextKey struct{}

// NewLogger creates a new logger with the given configuration. The service
// name is attached to every emitted line.
func NewLogger(cfg LoggingConfig, serviceName string) (*Logger, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		// If it's not stdout/stderr, assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writer = file
	}

	return newLogger(cfg, serviceName, writer), nil
}

// newLogger builds a logger writing to an explicit writer.
func newLogger(cfg LoggingConfig, serviceName string, writer io.Writer) *Logger {
	configureWireFormat()

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(writer).
		Level(parseLogLevel(cfg.Level)).
		Hook(traceHook{}).
		With().
		Timestamp().
		Str(FieldService, serviceName).
		Logger()

	return &Logger{
		zlog:   zlog,
		config: cfg,
	}
}

var wireFormatOnce sync.Once

// configureWireFormat sets the zerolog globals that define the wire format.
// These are process-wide in zerolog, so they are applied exactly once.
func configureWireFormat() {
	wireFormatOnce.Do(func() {
		zerolog.TimestampFieldName = FieldTimestamp
		zerolog.LevelFieldName = FieldLevel
		zerolog.MessageFieldName = FieldMessage
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
		zerolog.LevelFieldMarshalFunc = levelName
	})
}

// levelName maps zerolog levels to the wire-format level names.
func levelName(l zerolog.Level) string {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return "DEBUG"
	case zerolog.InfoLevel:
		return "INFO"
	case zerolog.WarnLevel:
		return "WARNING"
	case zerolog.ErrorLevel:
		return "ERROR"
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return "CRITICAL"
	default:
		return strings.ToUpper(l.String())
	}
}

// parseLogLevel converts a wire-format level name to zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "CRITICAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Named returns a child logger carrying the given logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zlog:   l.zlog.With().Str(FieldLogger, name).Logger(),
		config: l.config,
	}
}

// WithFields returns a logger with additional fields attached to every
// line. A key colliding with a fixed schema key is a programming error and
// panics rather than silently overwriting the schema. Values that cannot
// be represented as JSON are coerced to their string form so that the log
// call itself never fails.
func (l *Logger) WithFields(fields Fields) *Logger {
	zctx := l.zlog.With()
	for k, v := range fields {
		if reservedFields[k] {
			panic(fmt.Sprintf("telemetry: log field %q collides with a fixed schema key", k))
		}
		zctx = appendField(zctx, k, v)
	}
	return &Logger{
		zlog:   zctx.Logger(),
		config: l.config,
	}
}

// WithField returns a logger with a single additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithException attaches err as a structured exception object with type,
// message and a captured stack.
func (l *Logger) WithException(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		zlog:   l.zlog.With().Dict(FieldException, exceptionDict(err)).Logger(),
		config: l.config,
	}
}

// appendField adds one extra field, falling back to string coercion for
// values the JSON encoder cannot handle (functions, channels, cycles).
func appendField(zctx zerolog.Context, key string, value interface{}) zerolog.Context {
	if value == nil {
		return zctx.Interface(key, nil)
	}
	if _, err := json.Marshal(value); err != nil {
		return zctx.Str(key, fmt.Sprint(value))
	}
	return zctx.Interface(key, value)
}

// exceptionDict renders an error as the nested exception object.
func exceptionDict(err error) *zerolog.Event {
	frames, truncated := stackFrames(3)
	d := zerolog.Dict().
		Str("type", fmt.Sprintf("%T", err)).
		Str("message", err.Error()).
		Strs("stack", frames)
	if truncated {
		d = d.Bool("truncated", true)
	}
	return d
}

// stackFrames captures the calling stack as one string per frame.
func stackFrames(skip int) ([]string, bool) {
	pcs := make([]uintptr, maxStackFrames+1)
	n := runtime.Callers(skip+1, pcs)
	truncated := n > maxStackFrames
	if truncated {
		n = maxStackFrames
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return out, truncated
}

// PanicError wraps a recovered panic value so it can be logged as an
// exception while preserving the original value for re-panicking.
type PanicError struct {
	Value interface{}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// AsError converts a recovered panic value to an error, passing real
// errors through unchanged.
func AsError(recovered interface{}) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Value: recovered}
}

// WithContext adds the logger to the context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

var (
	fallbackLoggerOnce sync.Once
	fallbackLogger     *Logger
)

// FromContext retrieves the logger from the context.
// If no logger is found, it returns a shared default stdout logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	fallbackLoggerOnce.Do(func() {
		fallbackLogger = newLogger(LoggingConfig{Level: "INFO", Format: "json"}, "finsim", os.Stdout)
	})
	return fallbackLogger
}

// Debug logs a debug-level message correlated with ctx's active span.
func (l *Logger) Debug(ctx context.Context, msg string) {
	l.emit(ctx, l.zlog.Debug(), msg)
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(ctx context.Context, format string, args ...interface{}) {
	l.emit(ctx, l.zlog.Debug(), fmt.Sprintf(format, args...))
}

// Info logs an info-level message correlated with ctx's active span.
func (l *Logger) Info(ctx context.Context, msg string) {
	l.emit(ctx, l.zlog.Info(), msg)
}

// Infof logs a formatted info-level message.
func (l *Logger) Infof(ctx context.Context, format string, args ...interface{}) {
	l.emit(ctx, l.zlog.Info(), fmt.Sprintf(format, args...))
}

// Warn logs a warning-level message correlated with ctx's active span.
func (l *Logger) Warn(ctx context.Context, msg string) {
	l.emit(ctx, l.zlog.Warn(), msg)
}

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(ctx context.Context, format string, args ...interface{}) {
	l.emit(ctx, l.zlog.Warn(), fmt.Sprintf(format, args...))
}

// Error logs an error-level message correlated with ctx's active span.
func (l *Logger) Error(ctx context.Context, msg string) {
	l.emit(ctx, l.zlog.Error(), msg)
}

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(ctx context.Context, format string, args ...interface{}) {
	l.emit(ctx, l.zlog.Error(), fmt.Sprintf(format, args...))
}

// Fatal logs a critical-level message and exits.
func (l *Logger) Fatal(ctx context.Context, msg string) {
	l.emit(ctx, l.zlog.Fatal(), msg)
}

// emit finalizes one event as a single atomic line write.
func (l *Logger) emit(ctx context.Context, e *zerolog.Event, msg string) {
	if ctx != nil {
		e = e.Ctx(ctx)
	}
	e.Msg(msg)
}

// LogAt logs msg at the given wire-format level (DEBUG, INFO, WARNING,
// ERROR). Used where the level is data, such as status-code policies.
func (l *Logger) LogAt(ctx context.Context, level string, msg string) {
	l.emit(ctx, l.zlog.WithLevel(parseLogLevel(level)), msg)
}
