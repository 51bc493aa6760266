package cmd

import (
	"context"

	"github.com/harrison/scout/internal/display"
	"github.com/harrison/scout/internal/query"
	"github.com/spf13/cobra"
)

func newTiersCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Show the locations a search walks, in order",
		Long: `Show the prioritized search locations for this machine together with
the depth each root is walked to. Mounted volumes are discovered at run
time. With --path the single synthetic tier for that directory is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req query.Request
			req.Path, _ = cmd.Flags().GetString("path")
			if cmd.Flags().Changed("depth") {
				depth, _ := cmd.Flags().GetInt("depth")
				req.MaxDepth = &depth
			}
			if noSystem, _ := cmd.Flags().GetBool("no-system"); noSystem {
				include := false
				req.IncludeSystem = &include
			}

			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				q, err := a.adapter.ToQuery(req)
				if err != nil {
					return err
				}
				tierList := a.nav.Tiers(ctx, q)
				if wantJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), tierList)
				}
				return display.WriteTiers(cmd.OutOrStdout(), tierList)
			})
		},
	}

	cmd.Flags().StringP("path", "p", "", "Show the tier for an explicit directory")
	cmd.Flags().Int("depth", 0, "Depth below --path")
	cmd.Flags().Bool("no-system", false, "Leave out system locations")
	return cmd
}
