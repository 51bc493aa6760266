package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/scout/internal/handler"
	"github.com/spf13/cobra"
)

func newExecCommand(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [command-json]",
		Short: "Run one structured command and print the JSON response",
		Long: `Run one structured command, as produced by an assistant layer, and print
the JSON response. The command is read from the argument or from stdin.

Actions: process_query (alias search, find), list_folders, list_files,
search_files_recursive, file_exists, folder_exists, similar_locations,
drive_usage.

A response is always printed; failures are reported in its "error" field.

Examples:
  scout exec '{"action":"search","query":"taxes","file_type":"pdf"}'
  echo '{"action":"list_folders","directory":"~"}' | scout exec
  scout exec --continue '{"action":"search","query":"*.mkv"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := commandInput(args, env.stdin)
			if err != nil {
				return err
			}
			cont, _ := cmd.Flags().GetBool("continue")

			return env.withApp(cmd, func(ctx context.Context, a *app) error {
				var resp handler.Response
				if cont {
					var c handler.Command
					if err := json.Unmarshal(data, &c); err != nil {
						return fmt.Errorf("invalid command format: %w", err)
					}
					resp = a.handler.Continue(ctx, c)
				} else {
					resp = a.handler.HandleJSON(ctx, data)
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().Bool("continue", false, "Run with the extended deadline")
	return cmd
}

func commandInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	if stdin == nil {
		return nil, fmt.Errorf("no command given")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read command: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("no command given")
	}
	return data, nil
}
