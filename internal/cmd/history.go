package cmd

import (
	"context"
	"fmt"

	"github.com/harrison/scout/internal/display"
	"github.com/spf13/cobra"
)

func newHistoryCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the search journal",
		Long: `Inspect the journal of past searches.

The journal records what each search asked for, which backend answered
and how complete the answer was. It is never consulted to answer a query.`,
	}
	cmd.AddCommand(newHistoryListCommand(env))
	cmd.AddCommand(newHistoryPruneCommand(env))
	cmd.AddCommand(newHistoryStatsCommand(env))
	return cmd
}

func newHistoryListCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				store, err := a.requireJournal()
				if err != nil {
					return err
				}
				entries, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				return display.WriteHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of searches to show")
	return cmd
}

func newHistoryPruneCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				store, err := a.requireJournal()
				if err != nil {
					return err
				}
				keep := a.cfg.History.KeepDays
				if cmd.Flags().Changed("keep-days") {
					keep, _ = cmd.Flags().GetInt("keep-days")
				}
				n, err := store.Prune(ctx, keep)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d searches older than %d days\n", n, keep)
				return nil
			})
		},
	}
	cmd.Flags().Int("keep-days", 0, "Keep this many days (default from config)")
	return cmd
}

func newHistoryStatsCommand(env environment) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				store, err := a.requireJournal()
				if err != nil {
					return err
				}
				st, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				if wantJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				return display.WriteStats(cmd.OutOrStdout(), st)
			})
		},
	}
}
