package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/metrics"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPageSize caps limit on every paginated read.
const MaxPageSize = 100

// TrendingRanker reads rankings from the relational store.
type TrendingRanker interface {
	RankTrending(ctx context.Context) ([]*models.RankedVideo, error)
	ListByScore(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error)
}

// TrendingStore publishes and pages the cached ranking.
type TrendingStore interface {
	Replace(ctx context.Context, ids []uuid.UUID) (int64, error)
	Page(ctx context.Context, limit, offset int) ([]string, int64, error)
}

// TrendingPage is one page of the cached ranking.
type TrendingPage struct {
	CachedVids []string `json:"cachedVids"`
	Version    int64    `json:"version"`
}

// TrendingService recomputes the jittered ranking and serves pages of it.
type TrendingService struct {
	ranker TrendingRanker
	cache  TrendingStore
}

// NewTrendingService creates a new TrendingService.
func NewTrendingService(ranker TrendingRanker, cache TrendingStore) *TrendingService {
	return &TrendingService{ranker: ranker, cache: cache}
}

// Refresh ranks every video with fresh jitter and republishes the order.
func (s *TrendingService) Refresh(ctx context.Context) (ids []uuid.UUID, err error) {
	start := time.Now()
	defer func() {
		metrics.TrendingRefreshTotal.WithLabelValues(metrics.Result(err)).Inc()
		metrics.TrendingRefreshDuration.Observe(time.Since(start).Seconds())
	}()

	ranked, err := s.ranker.RankTrending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rank videos: %w", err)
	}

	ids = make([]uuid.UUID, len(ranked))
	for i, rv := range ranked {
		ids[i] = rv.ID
	}

	version, err := s.cache.Replace(ctx, ids)
	if err != nil {
		return nil, err
	}

	metrics.TrendingCachedVideos.Set(float64(len(ids)))
	logger.Log.Debug("Published trending list",
		zap.Int("videos", len(ids)),
		zap.Int64("version", version),
	)

	return ids, nil
}

// Page returns a slice of the cached ranking and its version.
func (s *TrendingService) Page(ctx context.Context, limit, offset int) (*TrendingPage, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	ids, version, err := s.cache.Page(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &TrendingPage{CachedVids: ids, Version: version}, nil
}

// Ranked returns a page of the unjittered ranking straight from the database.
func (s *TrendingService) Ranked(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	ranked, err := s.ranker.ListByScore(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return ranked, nil
}

func checkPage(limit, offset int) error {
	if limit <= 0 || limit > MaxPageSize {
		return apperr.BadRequest(fmt.Sprintf("limit must be between 1 and %d", MaxPageSize))
	}
	if offset < 0 {
		return apperr.BadRequest("offset must not be negative")
	}
	return nil
}
