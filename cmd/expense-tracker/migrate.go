package main

import (
	"fmt"
	"log/slog"

	"expense-tracker/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations and, with SEED_DATABASE, the seed files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationRunner(cmd, func(runner *database.MigrationRunner) error {
				if err := runner.RunMigrations(); err != nil {
					return err
				}
				return runner.LoadSeeds()
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrationRunner(cmd, func(runner *database.MigrationRunner) error {
				return runner.RollbackMigrations(steps)
			})
		},
	}
	down.Flags().Int("steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationRunner(cmd, func(runner *database.MigrationRunner) error {
				version, dirty, err := runner.GetMigrationStatus()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func withMigrationRunner(cmd *cobra.Command, fn func(*database.MigrationRunner) error) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	runner := database.NewMigrationRunner(sqlDB, &cfg.Database)
	if err := runner.WaitForDatabase(cmd.Context()); err != nil {
		return err
	}

	if err := fn(runner); err != nil {
		return err
	}

	slog.Info("migration command finished", "command", cmd.Name())
	return nil
}
