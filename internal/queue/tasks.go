package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeRefreshTrending = "trending:refresh"
)

// QueueTrending is the asynq queue the refresh task runs on.
const QueueTrending = "trending"

// ScopeAll refreshes the whole ranking. It is the only scope today.
const ScopeAll = "all"

// RefreshTrendingPayload is the payload for trending refresh tasks. asynq
// keys uniqueness on the payload, so it must not carry per-request data.
type RefreshTrendingPayload struct {
	Scope string `json:"scope"`
}

// NewRefreshTrendingTask creates a refresh task that stays unique for window,
// so a burst of triggers collapses into one run.
func NewRefreshTrendingTask(window time.Duration) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(RefreshTrendingPayload{Scope: ScopeAll})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue(QueueTrending),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
	}
	if window > 0 {
		opts = append(opts, asynq.Unique(window))
	}

	return asynq.NewTask(TypeRefreshTrending, payload), opts, nil
}

// UnmarshalRefreshTrendingPayload deserializes JSON to payload
func UnmarshalRefreshTrendingPayload(data []byte) (*RefreshTrendingPayload, error) {
	var payload RefreshTrendingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
