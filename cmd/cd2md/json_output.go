package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// addJSONFlag registers the shared --json switch on a listing command.
func addJSONFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "json", false, "Print machine-readable JSON instead of a table")
}

// writeJSON encodes v as indented JSON to the command's stdout. Disc titles
// keep their characters as-is rather than being HTML-escaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
