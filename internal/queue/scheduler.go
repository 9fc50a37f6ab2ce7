package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Scheduler enqueues the trending refresh on a fixed interval.
type Scheduler struct {
	scheduler *asynq.Scheduler
	entryID   string
}

// NewScheduler registers the periodic refresh. The task is unique for one
// interval, so a slow run is never stacked behind another.
func NewScheduler(redisURL string, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}

	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.Named("scheduler")
	s := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		EnqueueErrorHandler: func(task *asynq.Task, _ []asynq.Option, err error) {
			log.Warn("enqueue failed", zap.String("type", task.Type()), zap.Error(err))
		},
	})

	task, opts, err := NewRefreshTrendingTask(interval)
	if err != nil {
		return nil, err
	}

	entryID, err := s.Register(fmt.Sprintf("@every %s", interval), task, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to register trending refresh: %w", err)
	}

	return &Scheduler{scheduler: s, entryID: entryID}, nil
}

// Start starts the scheduler without blocking.
func (s *Scheduler) Start() error {
	logger.Log.Info("starting scheduler", zap.String("entry_id", s.entryID))
	return s.scheduler.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
}

// Client enqueues one-off refreshes, e.g. after a video is uploaded or deleted.
type Client struct {
	asynqClient *asynq.Client
	window      time.Duration
}

// NewClient creates a new queue client. Refreshes requested within window
// of each other collapse into one task.
func NewClient(redisURL string, window time.Duration) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		window:      window,
	}, nil
}

// RequestRefresh enqueues a trending refresh unless one is already pending.
func (c *Client) RequestRefresh(ctx context.Context, reason string) error {
	task, opts, err := NewRefreshTrendingTask(c.window)
	if err != nil {
		return err
	}

	info, err := c.asynqClient.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Log.Debug("trending refresh already pending", zap.String("reason", reason))
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Log.Debug("enqueued trending refresh", zap.String("reason", reason), zap.String("task_id", info.ID))
	return nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}
