//go:build integration
// +build integration

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fairpipe/fairpipe-api/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var testBuckets = Buckets{Upload: "upload", Video: "video", Photo: "photo"}

func newTestStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemory()
	require.NoError(t, storage.EnsureBuckets(context.Background(), store, testBuckets.Upload, testBuckets.Video, testBuckets.Photo))
	return store
}

// recordingJobs records published jobs and can be told to fail.
type recordingJobs struct {
	mu            sync.Mutex
	resolution    []Job
	transcription []Job
	failWith      error
}

func (r *recordingJobs) PublishResolution(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.resolution = append(r.resolution, job)
	return nil
}

func (r *recordingJobs) PublishTranscription(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.transcription = append(r.transcription, job)
	return nil
}

type recordingRefresh struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingRefresh) RequestRefresh(_ context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	return nil
}

// failingDeleteStore is a MemoryStore whose deletes fail.
type failingDeleteStore struct {
	*storage.MemoryStore
}

func (s failingDeleteStore) Delete(context.Context, string, string) error {
	return errors.New("object store unavailable")
}

// failingCommitDB hands out real transactions whose commit rolls back and fails.
type failingCommitDB struct {
	*pgxpool.Pool
}

func (d failingCommitDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx, err := d.Pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return failingCommitTx{Tx: tx}, nil
}

type failingCommitTx struct {
	pgx.Tx
}

func (t failingCommitTx) Commit(ctx context.Context) error {
	_ = t.Tx.Rollback(ctx)
	return errors.New("connection lost during commit")
}
