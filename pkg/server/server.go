package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/finsim/finsim/pkg/config"
	"github.com/finsim/finsim/pkg/simulation"
	"github.com/finsim/finsim/pkg/stores"
	"github.com/finsim/finsim/pkg/telemetry"
)

// Server is the finsim HTTP server.
type Server struct {
	router      *gin.Engine
	http        *http.Server
	logger      *telemetry.Logger
	simulator   *simulation.Simulator
	store       stores.Store
	serviceName string
}

// New assembles the router with the full middleware chain and all
// routes. The store may be nil, which disables history and the
// database health check.
func New(cfg *config.Config, tel *telemetry.Telemetry, sim *simulation.Simulator, store stores.Store) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger:      tel.Logger.Named("server"),
		simulator:   sim,
		store:       store,
		serviceName: tel.Config.ServiceName,
	}

	router := gin.New()

	// Recovery stays outermost so a re-panicking request logger still
	// resolves to a 500 response.
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.serviceName, otelgin.WithTracerProvider(tel.Tracer.Provider())))
	router.Use(RequestID())
	router.Use(Metrics(tel.Metrics))
	router.Use(RequestLogger(tel.Logger, RequestLoggerOptions{
		Filter:            NewFilterConfig(cfg.FilterPaths...),
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/simular-financiamento", s.handleSimulate)
	router.GET("/simulacoes", s.handleListSimulations)
	router.GET("/metrics", gin.WrapH(tel.Metrics.Handler()))

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.http.Addr).Info(ctx, "http server listening")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "http server shutting down")
	return s.http.Shutdown(ctx)
}
