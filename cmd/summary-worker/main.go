package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/config"
	"github.com/pavelzhurov/visitstream/internal/summary"
	"github.com/pavelzhurov/visitstream/pkg/logger"
	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "summary-worker")
	log.Info("Starting Summary Worker",
		zap.String("environment", cfg.Environment),
		zap.Duration("poll_interval", cfg.Summary.PollInterval),
		zap.Duration("inactivity_timeout", cfg.Summary.InactivityTimeout),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := summary.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Failed to ensure summary schema", zap.Error(err))
	}

	worker := summary.NewWorker(
		summary.NewEventStore(db, log),
		summary.NewSummaryStore(db, log),
		cfg.Summary,
		log,
	)

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	cancel()
	<-done

	log.Info("Summary Worker stopped")
}
