package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"runway/internal/amqp"
	"runway/internal/config"
	"runway/internal/log"
	"runway/internal/rules"
	"runway/internal/storage"
	"runway/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting runway-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	// The worker always persists: snapshots are its whole purpose.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker computes its own forecasts; no event publisher and no
	// memoization, every refresh is a fresh computation.
	svc := rules.NewService(repo, nil, nil, logger.WithComponent(log.ComponentRules))
	snapshots := worker.NewSnapshotWorker(svc, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Refresh once at startup so a fresh deployment has a snapshot before the
	// first message or cron tick.
	if err := snapshots.Refresh(ctx); err != nil {
		logger.Error("Startup snapshot refresh failed", log.FieldError, err.Error())
	}

	go func() {
		err := amqpClient.ConsumeRuleChanged(ctx, func(msg *amqp.RuleChangedMessage) error {
			return snapshots.HandleRuleChanged(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
		}
		cancel()
	}()

	if cfg.RefreshSchedule != "" {
		c, err := snapshots.Schedule(ctx, cfg.RefreshSchedule)
		if err != nil {
			logger.Error("Failed to schedule snapshot refresh", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer c.Stop()
	} else {
		logger.Info("Scheduled refresh disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Give in-flight work a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
