// Package main is the entrypoint for the mediawatch analysis worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civitas-io/mediawatch/internal/analysis"
	"github.com/civitas-io/mediawatch/internal/api"
	"github.com/civitas-io/mediawatch/internal/api/handler"
	mw "github.com/civitas-io/mediawatch/internal/api/middleware"
	"github.com/civitas-io/mediawatch/internal/api/response"
	"github.com/civitas-io/mediawatch/internal/cache"
	"github.com/civitas-io/mediawatch/internal/config"
	"github.com/civitas-io/mediawatch/internal/engine/openai"
	"github.com/civitas-io/mediawatch/internal/queue"
	"github.com/civitas-io/mediawatch/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"poll_interval", cfg.Worker.PollInterval.String(),
		"batch_size", cfg.Worker.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, engine client, and queue worker
	pgStore := store.NewPostgresStore(pool)

	engineClient := openai.NewClient(cfg.Engine.OpenAI)
	slog.Info("analysis engine client initialized", "model", engineClient.Model())

	orchestrator := analysis.NewOrchestrator(engineClient, pgStore, cfg.Engine)
	executor := queue.NewExecutor(pgStore, redisCache, orchestrator, cfg.Worker)
	worker := queue.NewWorker(pgStore, redisCache, executor, cfg.Worker)

	worker.StartProcessing()
	defer worker.StopProcessing()

	// 6. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:      healthHandler(pgStore, redisCache),
		WorkerStatsHandler: handler.NewWorkerStatsHandler(worker),
		StartWorkerHandler: handler.NewStartWorkerHandler(worker),
		StopWorkerHandler:  handler.NewStopWorkerHandler(worker),
		EnqueueJobHandler:  handler.NewEnqueueJobHandler(worker),
		GetJobHandler:      handler.NewGetJobHandler(worker),
		RetryJobHandler:    handler.NewRetryJobHandler(worker),
		CancelJobHandler:   handler.NewCancelJobHandler(worker),
		ListAlertsHandler:  handler.NewListAlertsHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining...")
	}

	// Stop the poller first so no new batch starts while draining
	worker.StopProcessing()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}
		response.JSON(w, map[string]string{"status": "ok"})
	}
}
