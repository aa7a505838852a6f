package main

import (
	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/todo-sync/internal/config"
	"github.com/BuzzLyutic/todo-sync/internal/repo/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema (tables and change trigger)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg = cfg.WithOverrides("", config.BackendPostgres)
			if err := cfg.Validate(); err != nil {
				return err
			}

			pool, err := connect(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("Schema is up to date")
			return nil
		},
	}
}
