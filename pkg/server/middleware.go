package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finsim/finsim/pkg/telemetry"
)

// HeaderRequestID is the request-id header, honored inbound and echoed
// on every response.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the gin context key holding the request id.
const requestIDKey = "finsim.request_id"

// StatusClientClosedRequest is reported when the client went away before
// a response status was written.
const StatusClientClosedRequest = 499

// FilterConfig holds the set of request paths exempted from request
// logging. Matching is exact: "/health" does not cover "/health/live".
type FilterConfig struct {
	paths map[string]struct{}
}

// NewFilterConfig builds a filter set from the given paths.
func NewFilterConfig(paths ...string) FilterConfig {
	f := FilterConfig{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		f.paths[p] = struct{}{}
	}
	return f
}

// Filtered reports whether the path is exempt from request logging.
func (f FilterConfig) Filtered(path string) bool {
	_, ok := f.paths[path]
	return ok
}

// LevelPolicy maps a response status code to a log level name.
type LevelPolicy func(status int) string

// DefaultLevelPolicy logs successes at INFO, client errors at WARNING
// and server errors at ERROR.
func DefaultLevelPolicy(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR"
	case status >= http.StatusBadRequest:
		return "WARNING"
	default:
		return "INFO"
	}
}

// RequestLoggerOptions configures the request logging middleware.
type RequestLoggerOptions struct {
	// Filter exempts paths from logging entirely.
	Filter FilterConfig

	// LevelPolicy picks the log level per status. Nil uses
	// DefaultLevelPolicy.
	LevelPolicy LevelPolicy

	// TrustProxyHeaders takes the client IP from forwarding headers
	// instead of the immediate peer address.
	TrustProxyHeaders bool
}

// RequestID assigns each request an id, honoring an inbound
// X-Request-ID header, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFrom returns the id assigned to this request.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Metrics records request count, latency and in-flight gauge. The
// deferred record keeps the in-flight gauge balanced across panics.
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()

		defer func() {
			m.RequestFinished()
			m.RecordHTTPRequest(
				c.Request.Method,
				c.Request.URL.Path,
				strconv.Itoa(c.Writer.Status()),
				time.Since(start),
			)
		}()

		c.Next()
	}
}

// RequestLogger emits one structured log line per request. Filtered
// paths are exempt from all request logging, including on panic. The
// emitted line carries method, path, status, monotonic duration, client
// IP, user agent and request id, and is correlated with the active span
// through the request context.
func RequestLogger(logger *telemetry.Logger, opts RequestLoggerOptions) gin.HandlerFunc {
	policy := opts.LevelPolicy
	if policy == nil {
		policy = DefaultLevelPolicy
	}
	log := logger.Named("http")

	return func(c *gin.Context) {
		if opts.Filter.Filtered(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		ctx := c.Request.Context()

		clientIP := c.RemoteIP()
		if opts.TrustProxyHeaders {
			clientIP = c.ClientIP()
		}

		emitted := false
		emit := func(status int, fault error) {
			if emitted {
				return
			}
			emitted = true

			l := log.WithFields(telemetry.Fields{
				"http_method": method,
				"http_path":   path,
				"http_status": status,
				"duration_ms": float64(time.Since(start)) / float64(time.Millisecond),
				"client_ip":   clientIP,
				"user_agent":  c.Request.UserAgent(),
				"request_id":  RequestIDFrom(c),
			})
			if fault != nil {
				l = l.WithException(fault)
			}
			l.LogAt(ctx, policy(status), fmt.Sprintf("%s %s -> %d", method, path, status))
		}

		defer func() {
			if r := recover(); r != nil {
				emit(http.StatusInternalServerError, telemetry.AsError(r))
				panic(r)
			}

			status := c.Writer.Status()
			if ctx.Err() != nil && !c.Writer.Written() {
				status = StatusClientClosedRequest
			}
			emit(status, nil)
		}()

		c.Next()
	}
}
