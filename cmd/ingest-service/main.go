package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pavelzhurov/visitstream/internal/config"
	"github.com/pavelzhurov/visitstream/internal/event"
	"github.com/pavelzhurov/visitstream/internal/livestats"
	"github.com/pavelzhurov/visitstream/internal/site"
	"github.com/pavelzhurov/visitstream/internal/summary"
	"github.com/pavelzhurov/visitstream/pkg/kafka"
	"github.com/pavelzhurov/visitstream/pkg/logger"
	"github.com/pavelzhurov/visitstream/pkg/postgres"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}

	defer log.Sync()

	log = logger.WithService(log, "ingest-service")
	log.Info("Starting Ingest Service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.IngestPort),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime}, log)

	if err != nil {
		log.Fatal("Error initializing postgres client", zap.Error(err))
	}

	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventRepo := event.NewRepository(db, log)
	siteRepo := site.NewRepository(db, log)
	if err := eventRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("Error ensuring events schema", zap.Error(err))
	}
	if err := siteRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("Error ensuring sites schema", zap.Error(err))
	}
	if err := summary.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Error ensuring summary schema", zap.Error(err))
	}
	if err := livestats.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Error ensuring livestats schema", zap.Error(err))
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Retries:          cfg.Kafka.ProducerRetries,
		Timeout:          cfg.Kafka.ProducerTimeout,
		RequiredAcks:     cfg.Kafka.RequiredAcks,
		Compression:      cfg.Kafka.CompressionType,
		IdempotentWrites: cfg.Kafka.IdempotentWrites,
		MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
	}, log)

	if err != nil {
		log.Fatal("Error initializing kafka", zap.Error(err))
	}

	defer producer.Close()

	registry := site.NewRegistry(siteRepo, cfg.Sites.CacheRefreshInterval, log)
	if err := registry.Start(ctx); err != nil {
		log.Fatal("Error loading site allow-list", zap.Error(err))
	}

	eventService := event.NewService(eventRepo, producer, registry, log)
	eventHandler := event.NewHandler(eventService, log)
	siteHandler := site.NewHandler(siteRepo, registry, log)

	summaryStore := summary.NewSummaryStore(db, log)
	statsService := livestats.NewService(livestats.NewRepository(db, log), log)
	readHandler := newReadHandler(summaryStore, statsService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/track", eventHandler.Track)
	r.Post("/v1/register", siteHandler.Register)
	r.Get("/v1/sessions/{sessionID}/summaries", readHandler.SessionSummaries)
	r.Get("/v1/livestats", readHandler.LiveStats)

	server := &http.Server{
		Addr:         ":" + cfg.IngestPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.IngestPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Error running HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown timed out", zap.Error(err))
	}
	log.Info("HTTP server stopped")
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
