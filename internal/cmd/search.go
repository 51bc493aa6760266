package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrison/scout/internal/display"
	"github.com/harrison/scout/internal/filelock"
	"github.com/harrison/scout/internal/handler"
	"github.com/harrison/scout/internal/query"
	"github.com/spf13/cobra"
)

func newSearchCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [pattern]",
		Short: "Search for files in priority order",
		Long: `Search for files by name, extension, size and modification time.

A pattern containing *, ? or [ is matched as a glob against file names;
anything else is a case-insensitive substring. Without --path the
tiered locations are searched in order and the search stops as soon as
--limit results are found.

Examples:
  scout search taxes
  scout search '*.pdf' --limit 10
  scout search --ext jpg,png --after 7d
  scout search report --path ~/Projects --depth 2
  scout search --min-size 100MB --type mkv,mp4
  scout search invoice --output results.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := searchRequest(cmd, args)
			if err != nil {
				return err
			}
			extended, _ := cmd.Flags().GetBool("extended")
			output, _ := cmd.Flags().GetString("output")

			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				resp := a.handler.Handle(ctx, handler.Command{
					Action:         handler.ActionProcessQuery,
					Request:        req,
					ExtendedSearch: extended,
				})
				if !resp.Success {
					return errors.New(resp.Error)
				}
				if output != "" {
					if err := filelock.ExportJSON(ctx, output, resp.Result); err != nil {
						return fmt.Errorf("failed to export results: %w", err)
					}
				}
				return writeSearchResponse(cmd, resp)
			})
		},
	}

	cmd.Flags().StringSliceP("ext", "e", nil, "Only match these extensions (comma separated)")
	cmd.Flags().String("type", "", "File type list, same as --ext")
	cmd.Flags().StringP("path", "p", "", "Search only this directory instead of the tiered locations")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Int("depth", 0, "Maximum depth below --path (default from config)")
	cmd.Flags().String("min-size", "", "Minimum file size (e.g. 10MB, 1.5GiB, 2048)")
	cmd.Flags().String("max-size", "", "Maximum file size")
	cmd.Flags().String("after", "", "Modified after a date (2024-01-31, RFC3339) or age (7d, 2w, 36h)")
	cmd.Flags().String("before", "", "Modified before a date or age")
	cmd.Flags().Bool("folders", false, "Let folders match the pattern")
	cmd.Flags().Bool("no-system", false, "Skip system locations")
	cmd.Flags().StringP("output", "o", "", "Also write the result as JSON to this file")
	cmd.Flags().Duration("timeout", 0, "Search deadline (default from config)")
	cmd.Flags().Bool("extended", false, "Use the extended deadline")

	return cmd
}

// searchRequest maps flags onto the structured request the adapter accepts.
func searchRequest(cmd *cobra.Command, args []string) (query.Request, error) {
	flags := cmd.Flags()
	var req query.Request

	if len(args) == 1 {
		req.Pattern = args[0]
	}
	req.Extensions, _ = flags.GetStringSlice("ext")
	req.FileType, _ = flags.GetString("type")
	req.Path, _ = flags.GetString("path")
	req.Limit, _ = flags.GetInt("limit")
	req.ModifiedAfter, _ = flags.GetString("after")
	req.ModifiedBefore, _ = flags.GetString("before")
	req.IncludeFolders, _ = flags.GetBool("folders")

	if flags.Changed("depth") {
		depth, _ := flags.GetInt("depth")
		req.MaxDepth = &depth
	}
	if noSystem, _ := flags.GetBool("no-system"); noSystem {
		include := false
		req.IncludeSystem = &include
	}

	var err error
	minSize, _ := flags.GetString("min-size")
	if req.MinSize, err = query.ParseSize(minSize); err != nil {
		return req, fmt.Errorf("--min-size: %w", err)
	}
	maxSize, _ := flags.GetString("max-size")
	if req.MaxSize, err = query.ParseSize(maxSize); err != nil {
		return req, fmt.Errorf("--max-size: %w", err)
	}
	return req, nil
}

func writeSearchResponse(cmd *cobra.Command, resp handler.Response) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return writeJSON(out, resp)
	}

	if err := display.WriteResults(out, resp.Result); err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	colored := isTerminal(errOut)
	if w, ok := display.WarnIncomplete(resp.Result); ok {
		w.Display(errOut, colored)
	}
	if resp.Result != nil {
		if w, ok := display.WarnSoftSkips(resp.Result.SoftSkips); ok {
			w.Display(errOut, colored)
		}
	}
	return nil
}
