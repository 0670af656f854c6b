package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "riskctl",
	Short:         "Score transaction files and inspect analysis jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
