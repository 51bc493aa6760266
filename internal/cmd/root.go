package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for scout
func NewRootCommand() *cobra.Command {
	return newRootCommand(hostEnvironment())
}

func newRootCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Prioritized local file search",
		Long: `Scout finds files on the local machine by walking the places people
keep them first: Desktop, Documents and Downloads, then media folders,
the rest of the home directory, mounted volumes and finally system
locations.

When a system indexer (Everything, Spotlight or locate) is installed and
healthy, queries are delegated to it and fall back to the tiered walk on
failure.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: $SCOUT_HOME/config.yaml)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-dir", "", "Also write logs to this directory")
	flags.Bool("json", false, "Write JSON output (default when stdout is not a terminal)")
	flags.Bool("no-provider", false, "Never delegate to a system indexer")
	flags.Bool("no-history", false, "Do not journal searches")
	flags.Bool("parallel", false, "Walk sibling roots of a tier concurrently")
	flags.Float64("io-rate", 0, "Maximum directory listings per second (0 = unlimited)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(newSearchCommand(env))
	cmd.AddCommand(newTiersCommand(env))
	cmd.AddCommand(newProbeCommand(env))
	cmd.AddCommand(newHistoryCommand(env))
	cmd.AddCommand(newExecCommand(env))
	cmd.AddCommand(newUsageCommand(env))

	return cmd
}
