package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expense-tracker/internal/app"
	"expense-tracker/internal/database"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume background tasks and run the periodic budget sweep",
		RunE:  runWorker,
	}

	cmd.Flags().Bool("sweep-now", false, "run one budget sweep and exit")

	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	sweepNow, _ := cmd.Flags().GetBool("sweep-now")
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

	sweeper := container.NewSweeper()

	if sweepNow {
		return sweeper.RunOnce(ctx)
	}

	if container.Broker == nil {
		return errors.New("worker requires AMQP_URL; without a broker tasks run inside serve")
	}

	logger.Info("starting worker", "queue", cfg.AMQP.Queue, "sweep_interval", cfg.Budget.SweepInterval)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := container.Broker.Consume(ctx, container.Dispatcher.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	err = g.Wait()
	logger.Info("worker stopped")
	return err
}
