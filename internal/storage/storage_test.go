package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	err := store.Put(ctx, "video", "a/b.txt", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err, "put into a missing bucket must fail")

	require.NoError(t, EnsureBuckets(ctx, store, "video", "upload"))
	require.NoError(t, store.Put(ctx, "video", "v1/master.m3u8", strings.NewReader("#EXTM3U"), 7, "application/vnd.apple.mpegurl"))
	require.NoError(t, store.Put(ctx, "video", "v1/subtitles/subs_en.vtt", strings.NewReader("WEBVTT"), 6, "text/vtt"))
	require.NoError(t, store.Put(ctx, "video", "v2/master.m3u8", strings.NewReader("#EXTM3U"), 7, "application/vnd.apple.mpegurl"))

	data, err := store.Get(ctx, "video", "v1/master.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U", string(data))
	assert.Equal(t, "text/vtt", store.ContentType("video", "v1/subtitles/subs_en.vtt"))

	_, err = store.Get(ctx, "video", "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	ok, err := store.Exists(ctx, "video", "v2/master.m3u8")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := store.List(ctx, "video", "v1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1/master.m3u8", "v1/subtitles/subs_en.vtt"}, keys)

	removed, err := DeletePrefix(ctx, store, "video", "v1/")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err = store.List(ctx, "video", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2/master.m3u8"}, keys)
}

func TestDeletePrefix_RefusesEmptyPrefix(t *testing.T) {
	store := NewMemory()
	_, err := DeletePrefix(context.Background(), store, "video", "")
	assert.Error(t, err)
}

type failingStore struct {
	*MemoryStore
	calls int
}

func (f *failingStore) Exists(context.Context, string, string) (bool, error) {
	f.calls++
	return false, errors.New("connection refused")
}

func (f *failingStore) Get(context.Context, string, string) ([]byte, error) {
	f.calls++
	return nil, ErrObjectNotFound
}

func TestBreaker_TripsOnBackendFailures(t *testing.T) {
	ctx := context.Background()
	backend := &failingStore{MemoryStore: NewMemory()}
	b := NewBreaker(backend, BreakerSettings{
		Name:             "test",
		FailureThreshold: 3,
		Timeout:          time.Hour,
	})

	for i := 0; i < 3; i++ {
		_, err := b.Exists(ctx, "video", "k")
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Exists(ctx, "video", "k")
	require.Error(t, err)
	assert.Equal(t, 3, backend.calls, "open breaker must not reach the backend")
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	backend := &failingStore{MemoryStore: NewMemory()}
	b := NewBreaker(backend, BreakerSettings{Name: "test", FailureThreshold: 2})

	for i := 0; i < 5; i++ {
		_, err := b.Get(ctx, "video", "missing")
		assert.ErrorIs(t, err, ErrObjectNotFound)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_PassesThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	b := NewBreaker(mem, BreakerSettings{Name: "test"})

	require.NoError(t, b.EnsureBucket(ctx, "photo"))
	require.NoError(t, b.Put(ctx, "photo", "p.png", bytes.NewReader([]byte{1, 2, 3}), 3, "image/png"))

	data, err := b.Get(ctx, "photo", "p.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	keys, err := b.List(ctx, "photo", "")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, b.Delete(ctx, "photo", "p.png"))
	ok, err := b.Exists(ctx, "photo", "p.png")
	require.NoError(t, err)
	assert.False(t, ok)

}
