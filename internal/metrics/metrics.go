// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fairpipe"

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		},
	)

	// Reactions
	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reaction toggles applied, by requested action and resulting state.",
		},
		[]string{"action", "state"},
	)

	// Trending
	TrendingRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trending_refresh_total",
			Help:      "Trending cache refreshes, by result.",
		},
		[]string{"result"},
	)

	TrendingRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trending_refresh_duration_seconds",
			Help:      "Duration of a full trending recompute and republish.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	TrendingCachedVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trending_cached_videos",
			Help:      "Number of video ids in the published trending list.",
		},
	)

	// Jobs
	JobsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_published_total",
			Help:      "Messages published to the processing queues, by queue and result.",
		},
		[]string{"queue", "result"},
	)

	// Storage
	StorageBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_breaker_state",
			Help:      "Object store circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)
)

// ObserveHTTP records one finished request.
func ObserveHTTP(route, method string, status int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(took.Seconds())
}

// Result turns an error into the "ok"/"error" label used by the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RegisterPool exposes live pgxpool statistics. Call once per process.
func RegisterPool(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_pool_acquired_connections",
				Help:      "Connections currently acquired from the pool.",
			},
			func() float64 { return float64(pool.Stat().AcquiredConns()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_pool_idle_connections",
				Help:      "Idle connections in the pool.",
			},
			func() float64 { return float64(pool.Stat().IdleConns()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_pool_max_connections",
				Help:      "Configured pool size.",
			},
			func() float64 { return float64(pool.Stat().MaxConns()) },
		),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
