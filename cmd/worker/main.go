package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentmatch/internal/app"
	"talentmatch/internal/config"
	"talentmatch/internal/database/migration"
	"talentmatch/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	container, err := app.NewContainer(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		if err := container.Close(); err != nil {
			zlog.Warn("close error", zap.Error(err))
		}
	}()

	migCtx, cancelMig := context.WithTimeout(context.Background(), 30*time.Second)
	if err := (migration.Runner{Dir: "migrations"}).Run(migCtx, container.DB.SQLDB()); err != nil {
		cancelMig()
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	cancelMig()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := container.StartWorkers(workerCtx); err != nil {
		zlog.Fatal("failed to start workers", zap.Error(err))
	}
	zlog.Info("workers started",
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.String("environment", cfg.App.Environment),
	)

	ops := app.New(container)
	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		zlog.Fatal("invalid HTTP port", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- ops.Fiber.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zlog.Fatal("ops server error", zap.Error(err))
		}
	case sig := <-sigCh:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
		stopWorkers()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ops.Fiber.ShutdownWithContext(ctx); err != nil {
			zlog.Warn("shutdown error", zap.Error(err))
		}
	}
}
