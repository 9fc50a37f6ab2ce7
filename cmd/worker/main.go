package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/config"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/metrics"
	"github.com/fairpipe/fairpipe-api/internal/queue"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsAddr = ":9091"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // nothing to do if the final flush fails

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Worker exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	pool, err := db.NewPool(ctx, db.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(pool)

	if err := metrics.RegisterPool(prometheus.DefaultRegisterer, pool); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	redisClient, err := queue.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck // shutdown path

	trending := service.NewTrendingService(
		repository.NewVideoRepository(pool),
		service.NewTrendingCache(redisClient, cfg.Redis.RankingKey),
	)

	// Publish a ranking before the first tick so readers never start empty.
	if _, err := trending.Refresh(ctx); err != nil {
		logger.Log.Warn("Initial trending refresh failed", zap.Error(err))
	}

	server, err := queue.NewServer(cfg.Redis.URL, cfg.Trending.Concurrency, queue.NewTrendingHandler(trending))
	if err != nil {
		return fmt.Errorf("create queue server: %w", err)
	}
	scheduler, err := queue.NewScheduler(cfg.Redis.URL, cfg.Trending.Interval)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("start queue server: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		server.Stop()
		return fmt.Errorf("start scheduler: %w", err)
	}

	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	logger.Log.Info("Trending worker started",
		zap.Duration("interval", cfg.Trending.Interval),
		zap.Int("concurrency", cfg.Trending.Concurrency),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown

	logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	scheduler.Stop()
	server.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Metrics server shutdown failed", zap.Error(err))
	}

	logger.Log.Info("Trending worker stopped")
	return nil
}
