package main

import (
	"fmt"
	"log/slog"

	"expense-tracker/internal/app"
	"expense-tracker/internal/database"
	"expense-tracker/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Without AMQP_URL background tasks run in-process and the periodic budget
sweep runs here as well. With a broker configured, run "worker" alongside.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	db, err := database.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	container, err := app.NewContainer(cfg, db, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.New(container).Run(ctx)
	})

	if !cfg.AMQP.Enabled() {
		sweeper := container.NewSweeper()
		g.Go(func() error {
			return sweeper.Run(ctx)
		})
	}

	return g.Wait()
}
