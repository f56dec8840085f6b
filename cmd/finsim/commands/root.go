package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finsim",
		Short: "finsim - mortgage financing simulation service",
		Long: `finsim simulates mortgage financing proposals over HTTP with full
request observability: structured JSON logs correlated with distributed
traces, OTLP trace export, Prometheus metrics and simulation history.

Configuration is taken from the environment (FINSIM_* and OTEL_*
variables); see the serve command for details.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSimulateCommand())

	return rootCmd
}
