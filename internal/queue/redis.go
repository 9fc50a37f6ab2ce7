package queue

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
)

// redisOptions parses the Redis setting with go-redis. Supports formats:
//   - redis://[user[:password]@]host:port[/db]
//   - rediss://[user[:password]@]host:port[/db] (TLS)
//   - host:port (no credentials)
func redisOptions(redisURL string) (*goredis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	if !strings.Contains(redisURL, "://") {
		return &goredis.Options{Addr: redisURL}, nil
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return opts, nil
}

// ParseRedisURL parses a Redis URL and returns asynq.RedisClientOpt.
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// NewRedisClient opens a go-redis client for the same URL forms
// ParseRedisURL accepts, so the cache and the scheduler share one setting.
func NewRedisClient(redisURL string) (*goredis.Client, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}
