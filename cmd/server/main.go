package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvidal/shop-funnel/internal/api"
	"github.com/mvidal/shop-funnel/internal/config"
	"github.com/mvidal/shop-funnel/internal/dates"
	"github.com/mvidal/shop-funnel/internal/engine"
	"github.com/mvidal/shop-funnel/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	// Initialize PostgreSQL
	ctx := context.Background()
	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL, loc)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Bound the dedup table. Counters are never pruned.
	cutoff := dates.AddDays(dates.Today(loc), -cfg.DedupRetentionDays)
	if pruned, err := pgStore.PruneDedupKeys(ctx, cutoff); err != nil {
		logger.Warn("failed to prune dedup keys", "error", err)
	} else if pruned > 0 {
		logger.Info("pruned old dedup keys", "count", pruned, "before", cutoff)
	}

	// Optional inbound rate limiter, only when redis is configured.
	var limiter *engine.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		limiter = engine.NewRateLimiter(redisClient, logger)
		logger.Info("connected to redis, webhook rate limiting enabled", "limit_per_second", cfg.WebhookRateLimit)
	}

	// Setup router
	wh := api.NewWebhookHandler(pgStore, cfg.WebhookSecret, loc, logger)
	router := api.NewRouter(wh, limiter, cfg.WebhookRateLimit)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
