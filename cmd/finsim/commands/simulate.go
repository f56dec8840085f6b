package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/finsim/finsim/pkg/config"
	"github.com/finsim/finsim/pkg/simulation"
	"github.com/finsim/finsim/pkg/telemetry"
)

func newSimulateCommand() *cobra.Command {
	var (
		propertyValue float64
		downPayment   float64
		termMonths    int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one financing simulation and print the result",
		Long: `Run one financing simulation in-process, without starting the HTTP
server, and print the resulting proposal as JSON on stdout.

The external rates API is consulted when FINSIM_RATES_URL is set;
otherwise the fallback rate applies. History is not persisted.`,
		Example: `  # Simulate a 500k property with 100k down over 30 years
  finsim simulate --valor 500000 --entrada 100000 --prazo-meses 360`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Simulation output goes to stdout; keep logs off it.
			cfg.Telemetry.Logging.Output = "stderr"
			cfg.Telemetry.Tracing.Exporter = "none"

			tel, err := telemetry.Setup(cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}
			defer func() { _ = tel.Shutdown(cmd.Context()) }()

			var rates simulation.RateLookup
			if cfg.RatesURL != "" {
				rates = simulation.NewRatesClient(simulation.RatesConfig{
					URL:     cfg.RatesURL,
					Timeout: cfg.RatesTimeout,
				})
			}

			sim := simulation.NewSimulator(tel, nil, rates, cfg.FallbackAnnualRate)
			result, err := sim.Simulate(cmd.Context(), uuid.NewString(), simulation.Request{
				PropertyValue: propertyValue,
				DownPayment:   downPayment,
				TermMonths:    termMonths,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().Float64Var(&propertyValue, "valor", 500000, "property value")
	cmd.Flags().Float64Var(&downPayment, "entrada", 100000, "down payment")
	cmd.Flags().IntVar(&termMonths, "prazo-meses", 360, "financing term in months")

	return cmd
}
