package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TrendingCache holds the published trending order as a Redis list plus a
// version counter that increases on every republish.
type TrendingCache struct {
	redisClient *redis.Client
	key         string
}

// NewTrendingCache creates a new TrendingCache under key.
func NewTrendingCache(redisClient *redis.Client, key string) *TrendingCache {
	return &TrendingCache{
		redisClient: redisClient,
		key:         key,
	}
}

func (c *TrendingCache) versionKey() string {
	return c.key + ":version"
}

// Replace swaps the whole list in one MULTI/EXEC, so readers see either the
// old list or the new one. It returns the new version.
func (c *TrendingCache) Replace(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var version *redis.IntCmd

	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		if len(ids) > 0 {
			members := make([]interface{}, len(ids))
			for i, id := range ids {
				members[i] = id.String()
			}
			pipe.RPush(ctx, c.key, members...)
		}
		version = pipe.Incr(ctx, c.versionKey())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to publish trending list: %w", err)
	}

	return version.Val(), nil
}

// Page reads limit ids starting at offset together with the version they
// belong to. A version of 0 means nothing was published yet.
func (c *TrendingCache) Page(ctx context.Context, limit, offset int) ([]string, int64, error) {
	if limit <= 0 || offset < 0 {
		return []string{}, 0, fmt.Errorf("invalid page limit=%d offset=%d", limit, offset)
	}

	var (
		ids     *redis.StringSliceCmd
		version *redis.StringCmd
	)

	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ids = pipe.LRange(ctx, c.key, int64(offset), int64(offset+limit-1))
		version = pipe.Get(ctx, c.versionKey())
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, 0, fmt.Errorf("failed to read trending page: %w", err)
	}

	v, err := version.Int64()
	if err != nil && err != redis.Nil {
		return nil, 0, fmt.Errorf("failed to parse trending version: %w", err)
	}

	return ids.Val(), v, nil
}

// Len returns the number of ids currently published.
func (c *TrendingCache) Len(ctx context.Context) (int64, error) {
	n, err := c.redisClient.LLen(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get trending list length: %w", err)
	}
	return n, nil
}

// Ping checks the Redis connection.
func (c *TrendingCache) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}
