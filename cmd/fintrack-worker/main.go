package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(os.Stdout)

	logger.Info("Starting fintrack-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.InitEvents(logger, cfg, true)
	defer amqpClient.Close()

	writer, err := cli.InitMirror(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", applog.FieldError, err, "backend", cfg.MirrorBackend)
		os.Exit(1)
	}
	// Remembers mirrored event IDs so redeliveries are not written twice.
	seen := cache.NewLRUCache[string](4096, 24*time.Hour)
	cacheManager := cache.NewManager()
	cacheManager.Register(seen)
	cacheManager.StartCleanup(10 * time.Minute)
	mirrorWorker := worker.NewMirrorWorker(writer, seen)

	auditor := worker.NewBalanceAuditor(repo.Queries(), worker.DefaultAuditorConfig())

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := auditor.Stop(ctx); err != nil {
			logger.Error("Failed to stop balance auditor", applog.FieldError, err)
		}
		cacheManager.Stop()
	})

	if err := auditor.Start(ctx); err != nil {
		logger.Error("Failed to start balance auditor", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.Consume(ctx, mirrorWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
