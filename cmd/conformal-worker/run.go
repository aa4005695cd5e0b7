package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/dago-node-conformal/internal/config"
	"github.com/aescanero/dago-node-conformal/internal/retry"
	"github.com/aescanero/dago-node-conformal/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drain the source queue for one bounded run",
		Long: `Run receives, scores, routes and acknowledges messages until the queue is
empty, MAX_RUNTIME_SECONDS elapses, or a message fails. Configuration is read
from the environment (and an optional .env file).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err := initLogger(cfg.LogLevel, "stdout")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWorker(ctx, cfg, logger)
		},
	}
}

// runWorker wires every component and performs one run
func runWorker(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting conformal worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("worker_id", cfg.WorkerID),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	scorer, err := newScorer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scorer", zap.Error(err))
		return err
	}

	routerInstance, err := newRouter(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize router", zap.Error(err))
		return err
	}

	queueClient, err := newQueueClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize queue client", zap.Error(err))
		return err
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Error("failed to close queue client", zap.Error(err))
		}
	}()

	policy := retry.NewPolicy(cfg.RetryCount, cfg.RetryBaseDelay, logger)

	w, err := worker.NewWorker(cfg.WorkerID, worker.OptionsFromConfig(cfg), queueClient, scorer, routerInstance, policy, logger)
	if err != nil {
		logger.Error("failed to initialize worker", zap.Error(err))
		return err
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, queueClient, w, logger)
	if err := healthServer.Start(); err != nil {
		logger.Error("failed to start health server", zap.Error(err))
		return err
	}
	defer func() {
		if err := healthServer.Stop(); err != nil {
			logger.Error("failed to stop health server", zap.Error(err))
		}
	}()

	if err := w.Run(ctx); err != nil {
		logger.Error("worker run failed", zap.Error(err))
		return err
	}

	stats := w.Stats()
	logger.Info("worker stopped gracefully",
		zap.Int("batches", stats.Batches),
		zap.Int("processed", stats.Processed),
	)
	return nil
}
