package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// wantJSON reports whether cmd should print JSON. An explicit --json wins;
// otherwise JSON is used whenever stdout is not a terminal.
func wantJSON(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("json") {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
