package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Refresher recomputes and republishes the trending ranking.
type Refresher interface {
	Refresh(ctx context.Context) ([]uuid.UUID, error)
}

// TrendingHandler handles trending refresh tasks
type TrendingHandler struct {
	refresher Refresher
}

// NewTrendingHandler creates a new trending task handler
func NewTrendingHandler(refresher Refresher) *TrendingHandler {
	return &TrendingHandler{refresher: refresher}
}

// ProcessTask implements asynq.Handler
func (h *TrendingHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalRefreshTrendingPayload(task.Payload())
	if err != nil {
		// a malformed payload will never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	start := time.Now()
	ids, err := h.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh trending: %w", err)
	}

	logger.Log.Info("trending refreshed",
		zap.String("scope", payload.Scope),
		zap.Int("videos", len(ids)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Server wraps asynq server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server
func NewServer(redisURL string, concurrency int, handler *TrendingHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.Named("asynq")
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueTrending: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TypeRefreshTrending, handler)

	return &Server{
		asynqServer: srv,
		mux:         mux,
	}, nil
}

// Start starts the server without blocking.
func (s *Server) Start() error {
	logger.Log.Info("starting task processing server")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	logger.Log.Info("shutting down task processing server")
	s.asynqServer.Shutdown()
}
