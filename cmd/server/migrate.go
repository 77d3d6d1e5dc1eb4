package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/reservation-service/internal/config"
	"github.com/nekogravitycat/reservation-service/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := db.RunMigrations(cfg.DB.DatabaseURL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
