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

	"github.com/fairpipe/fairpipe-api/internal/auth"
	"github.com/fairpipe/fairpipe-api/internal/config"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/handler"
	"github.com/fairpipe/fairpipe-api/internal/metrics"
	"github.com/fairpipe/fairpipe-api/internal/middleware"
	"github.com/fairpipe/fairpipe-api/internal/queue"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/storage"
	"github.com/fairpipe/fairpipe-api/internal/validation"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

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
		logger.Log.Fatal("Server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	pool, err := db.NewPool(ctx, db.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(pool)
	logger.Log.Info("Database connection established", zap.Int32("max_conns", pool.Config().MaxConns))

	if err := metrics.RegisterPool(prometheus.DefaultRegisterer, pool); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	buckets := service.Buckets{
		Upload: cfg.Storage.UploadBucket,
		Video:  cfg.Storage.VideoBucket,
		Photo:  cfg.Storage.PhotoBucket,
	}
	if err := storage.EnsureBuckets(ctx, store, buckets.Upload, buckets.Video, buckets.Photo); err != nil {
		return fmt.Errorf("ensure buckets: %w", err)
	}

	publisher, err := service.NewJobPublisher(&cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("initialize job publisher: %w", err)
	}
	defer publisher.Close() //nolint:errcheck // shutdown path

	redisClient, err := queue.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck // shutdown path
	cache := service.NewTrendingCache(redisClient, cfg.Redis.RankingKey)

	refreshClient, err := queue.NewClient(cfg.Redis.URL, cfg.Trending.Interval)
	if err != nil {
		return fmt.Errorf("initialize queue client: %w", err)
	}
	defer refreshClient.Close() //nolint:errcheck // shutdown path

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("initialize token manager: %w", err)
	}

	if err := validation.Register(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	users := service.NewUserService(pool, store, buckets.Photo, cfg.Storage.CDNBaseURL, auth.NewHasher(0), tokens)
	videos := service.NewVideoService(pool, store, publisher, buckets, refreshClient)
	thumbnails := service.NewThumbnailService(pool, store, buckets, cfg.Upload.MaxThumbnails)
	subtitles := service.NewSubtitleService(repository.NewVideoRepository(pool), store, buckets.Video)
	reactions := service.NewReactionService(pool)
	trending := service.NewTrendingService(repository.NewVideoRepository(pool), cache)

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(
		handler.RouterConfig{
			AllowOrigins:      cfg.Server.AllowOrigins,
			MultipartMemLimit: cfg.Upload.MultipartMemLimit,
		},
		middleware.NewSessionAuth(tokens, cfg.Auth.CookieName),
		handler.Handlers{
			Auth: handler.NewAuthHandler(users, handler.CookieConfig{
				Name:   cfg.Auth.CookieName,
				Domain: cfg.Auth.CookieDomain,
				Secure: cfg.Auth.CookieSecure,
				TTL:    cfg.Auth.TokenTTL,
			}),
			User:      handler.NewUserHandler(users, cfg.Upload.MaxImageSize),
			Video:     handler.NewVideoHandler(videos, cfg.Upload.MaxVideoSize),
			Thumbnail: handler.NewThumbnailHandler(thumbnails, cfg.Upload.MaxImageSize),
			Subtitle:  handler.NewSubtitleHandler(subtitles, cfg.Upload.MaxSubtitleSize),
			Reaction:  handler.NewReactionHandler(reactions),
			Sorting:   handler.NewSortingHandler(trending),
			Health:    handler.NewHealthHandler(pool, cache, publisher),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("Failed to close server", zap.Error(err))
			}
			return err
		}

		logger.Log.Info("Server stopped gracefully")
		return nil
	}
}
