package cmd

import (
	"errors"

	"github.com/harrison/scout/internal/display"
	"github.com/spf13/cobra"
)

func newUsageCommand(env environment) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show capacity of mounted volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.drives == nil {
				return errors.New("drive usage is not available")
			}
			drives := env.drives.DriveUsage(cmd.Context())
			if wantJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), drives)
			}
			return display.WriteUsage(cmd.OutOrStdout(), drives)
		},
	}
}
