package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/metrics"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings configures the circuit breaker around an ObjectStore.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	return s
}

// Breaker wraps an ObjectStore so that a failing backend trips open and
// requests fail fast until it recovers.
type Breaker struct {
	next ObjectStore
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next ObjectStore, settings BreakerSettings) *Breaker {
	settings = settings.withDefaults()

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// a missing key or a cancelled request says nothing about backend health
			return err == nil ||
				errors.Is(err, ErrObjectNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warn("Object store circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.StorageBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Breaker{next: next, cb: cb}
}

// State reports the breaker state for health checks.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Put(ctx, bucket, key, r, size, contentType)
	})
	return err
}

func (b *Breaker) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, bucket, key)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (b *Breaker) Exists(ctx context.Context, bucket, key string) (bool, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Exists(ctx, bucket, key)
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (b *Breaker) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, bucket, key)
	})
	return err
}

func (b *Breaker) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.List(ctx, bucket, prefix)
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (b *Breaker) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.EnsureBucket(ctx, bucket)
	})
	return err
}
