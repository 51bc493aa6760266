package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/scout/internal/backend"
	"github.com/spf13/cobra"
)

// probeReport is the outcome of checking the configured indexer.
type probeReport struct {
	Provider  string    `json:"provider,omitempty"`
	Enabled   bool      `json:"enabled"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	Decision  string    `json:"decision"`
}

func newProbeCommand(env environment) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether a system indexer is available",
		Long: `Probe the configured indexer (Everything on Windows, Spotlight on macOS,
plocate or locate elsewhere) and report which backend searches would use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				report := probeReport{Decision: backend.UseNavigator.String()}
				if a.provider != nil {
					h := a.selector.Health().Check(ctx, a.provider)
					a.metrics.ProviderHealth(h.Healthy)

					report.Provider = a.provider.Name()
					report.Enabled = true
					report.Healthy = h.Healthy
					report.CheckedAt = h.CheckedAt
					if h.Err != nil {
						report.Error = h.Err.Error()
					}
					if h.Healthy {
						report.Decision = backend.DelegateToProvider.String()
					}
				}

				out := cmd.OutOrStdout()
				if wantJSON(cmd) {
					return writeJSON(out, report)
				}
				switch {
				case !report.Enabled:
					fmt.Fprintln(out, "Provider: disabled")
				case report.Healthy:
					fmt.Fprintf(out, "Provider: %s (available)\n", report.Provider)
				default:
					fmt.Fprintf(out, "Provider: %s (unavailable: %s)\n", report.Provider, report.Error)
				}
				fmt.Fprintf(out, "Decision: %s\n", report.Decision)
				return nil
			})
		},
	}
}
