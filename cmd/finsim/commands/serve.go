package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsim/finsim/pkg/config"
	"github.com/finsim/finsim/pkg/server"
	"github.com/finsim/finsim/pkg/simulation"
	"github.com/finsim/finsim/pkg/stores"
	"github.com/finsim/finsim/pkg/telemetry"
)

// shutdownTimeout bounds draining on exit.
const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the finsim HTTP service",
		Long: `Start the finsim HTTP service.

Endpoints:
  GET /                      service status
  GET /health                liveness, including the database
  GET /simular-financiamento run a financing simulation
  GET /simulacoes            list recent simulations
  GET /metrics               Prometheus metrics

Environment:
  FINSIM_ADDR                 listen address (default :8000)
  FINSIM_FILTER_PATHS         comma-separated paths exempt from request logs
  FINSIM_RATES_URL            external rates API endpoint
  FINSIM_RATES_TIMEOUT        rates lookup timeout (default 5s)
  FINSIM_FALLBACK_RATE        simulated annual rate when the API is down
  FINSIM_DB_PATH              sqlite history file (empty disables history)
  FINSIM_TRUST_PROXY          take client IPs from forwarding headers
  OTEL_SERVICE_NAME           service name on logs and traces
  OTEL_EXPORTER_OTLP_ENDPOINT OTLP collector endpoint
  LOG_LEVEL, LOG_FORMAT       logging knobs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides FINSIM_ADDR)")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	tel, err := telemetry.Setup(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	var store stores.Store
	if cfg.DatabasePath != "" {
		sqlStore, err := stores.NewSQLiteStore(stores.SQLiteConfig{Path: cfg.DatabasePath})
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}
		if err := sqlStore.Init(ctx); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			_ = sqlStore.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore

		tel.Logger.WithField("path", cfg.DatabasePath).Info(ctx, "simulation history enabled")
	}

	var rates simulation.RateLookup
	if cfg.RatesURL != "" {
		rates = simulation.NewRatesClient(simulation.RatesConfig{
			URL:     cfg.RatesURL,
			Timeout: cfg.RatesTimeout,
		})
	}

	sim := simulation.NewSimulator(tel, store, rates, cfg.FallbackAnnualRate)
	srv := server.New(cfg, tel, sim, store)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return <-errCh
}
