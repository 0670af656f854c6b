package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/app"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/coordinator"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/parser"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/scoring"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/store"
)

var guidance string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the full analysis in-process and print the job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, flush, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer flush()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		narrator, err := app.NewNarrator(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		coord := coordinator.New(store.NewMemoryStore(), narrator)
		id, err := coord.StartAnalysis(cmd.Context(), coordinator.Submission{
			Content:  content,
			Filename: filepath.Base(args[0]),
			Guidance: guidance,
		})
		if err != nil {
			return err
		}
		job, err := coord.GetStatus(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score a tabular file without summarizing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := parser.Parse(content, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		if doc.Kind != parser.KindTabular {
			return fmt.Errorf("%s has no rows to score", args[0])
		}
		annotations, err := scoring.Score(doc.Table.Rows)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), annotations)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&guidance, "guidance", "g", "", "Free-text analysis guidance for the summary")
}
