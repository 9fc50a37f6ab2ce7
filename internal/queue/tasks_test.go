package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshTrendingTask(t *testing.T) {
	task, opts, err := NewRefreshTrendingTask(time.Minute)
	require.NoError(t, err)

	assert.Equal(t, TypeRefreshTrending, task.Type())
	assert.Len(t, opts, 4)

	payload, err := UnmarshalRefreshTrendingPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, payload.Scope)

	_, opts, err = NewRefreshTrendingTask(0)
	require.NoError(t, err)
	assert.Len(t, opts, 3, "no uniqueness without a window")
}

func TestNewRefreshTrendingTask_StablePayload(t *testing.T) {
	first, _, err := NewRefreshTrendingTask(time.Minute)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second, _, err := NewRefreshTrendingTask(time.Minute)
	require.NoError(t, err)

	assert.Equal(t, first.Payload(), second.Payload(), "uniqueness key must not vary between calls")
}

type stubRefresher struct {
	ids   []uuid.UUID
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context) ([]uuid.UUID, error) {
	s.calls++
	return s.ids, s.err
}

func TestTrendingHandler_ProcessTask(t *testing.T) {
	task, _, err := NewRefreshTrendingTask(time.Minute)
	require.NoError(t, err)

	t.Run("refreshes", func(t *testing.T) {
		r := &stubRefresher{ids: []uuid.UUID{uuid.New(), uuid.New()}}
		h := NewTrendingHandler(r)

		require.NoError(t, h.ProcessTask(context.Background(), task))
		assert.Equal(t, 1, r.calls)
	})

	t.Run("propagates refresh errors for retry", func(t *testing.T) {
		r := &stubRefresher{err: errors.New("redis down")}
		h := NewTrendingHandler(r)

		err := h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("skips retry on malformed payload", func(t *testing.T) {
		r := &stubRefresher{}
		h := NewTrendingHandler(r)

		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeRefreshTrending, []byte("{")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
		assert.Zero(t, r.calls)
	})
}

func TestNewScheduler_RejectsBadInput(t *testing.T) {
	_, err := NewScheduler("redis://localhost:6379", 0)
	assert.Error(t, err)

	_, err = NewScheduler("ftp://localhost", time.Minute)
	assert.Error(t, err)
}
