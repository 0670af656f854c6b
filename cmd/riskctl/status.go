package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/app"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print a job from the configured shared store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, flush, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer flush()
		if err := requireSharedStore(cfg); err != nil {
			return err
		}
		cfg.PipelineMode = config.PipelineSync
		cfg.RateLimitEnabled = false

		rt, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		job, err := rt.Coordinator.GetStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres job-store migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, flush, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer flush()
		cfg.StoreBackend = config.StorePostgres
		cfg.PipelineMode = config.PipelineSync
		cfg.RateLimitEnabled = false

		// Connecting the postgres store applies the embedded migrations.
		rt, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		rt.Close()
		cmd.Println("migrations applied")
		return nil
	},
}

// requireSharedStore rejects the memory backend, which starts empty in every
// process and so can never hold another process's jobs.
func requireSharedStore(cfg config.Config) error {
	if cfg.StoreBackend == config.StoreMemory {
		return fmt.Errorf("status needs STORE_BACKEND=%s or %s; the %s store is private to each process",
			config.StoreRedis, config.StorePostgres, config.StoreMemory)
	}
	return nil
}
