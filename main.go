package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/icco/vodrec/handlers"
	"github.com/icco/vodrec/lib/config"
	"github.com/icco/vodrec/lib/db"
	"github.com/icco/vodrec/lib/health"
	"github.com/icco/vodrec/lib/lock"
	"github.com/icco/vodrec/lib/pipeline"
	"github.com/icco/vodrec/lib/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	gdb, err := db.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := newStore(cfg.Storage, logger)
	if err != nil {
		logger.Error("Failed to open object store", slog.Any("error", err))
		os.Exit(1)
	}

	p := pipeline.New(gdb, store, cfg.Storage.ObjectName, cfg.Pipeline, cfg.Model, logger)
	runLock := lock.New(logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", health.Check(gdb))
	r.Post("/cron", handlers.HandleCron(p, runLock, logger))
	r.Get("/runs/latest", handlers.HandleLatestRun(gdb))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting server", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func newStore(cfg config.StorageConfig, logger *slog.Logger) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case "gcs":
		return storage.NewGCSStore(context.Background(), cfg.Bucket, logger)
	case "local":
		return storage.NewLocalStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
