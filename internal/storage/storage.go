// Package storage abstracts the bucket/key object store that holds uploads,
// transcoded renditions, thumbnails, subtitles and profile pictures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fairpipe/fairpipe-api/internal/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of S3 semantics the API needs.
type ObjectStore interface {
	// Put writes an object. size may be -1 when unknown.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error

	// Get reads a whole object. Intended for small objects such as playlists.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Exists reports whether an object exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Delete removes an object. Removing a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// List returns the keys under prefix, recursively.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// EnsureBucket creates the bucket if it does not exist.
	EnsureBucket(ctx context.Context, bucket string) error
}

// DeletePrefix removes every object under prefix and returns how many were removed.
func DeletePrefix(ctx context.Context, store ObjectStore, bucket, prefix string) (int, error) {
	if prefix == "" || prefix == "/" {
		return 0, fmt.Errorf("refusing to delete the whole bucket %s", bucket)
	}

	keys, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, key := range keys {
		if err := store.Delete(ctx, bucket, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s/%s: %w", bucket, key, err))
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// New builds the store selected by cfg.Driver, wrapped in a circuit breaker
// unless the driver is the in-memory one.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	var (
		store ObjectStore
		err   error
	)

	switch strings.ToLower(cfg.Driver) {
	case "minio":
		store, err = NewMinIO(cfg)
	case "s3":
		store, err = NewS3(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return NewBreaker(store, BreakerSettings{Name: "storage-" + cfg.Driver}), nil
}

// EnsureBuckets creates each named bucket if missing.
func EnsureBuckets(ctx context.Context, store ObjectStore, buckets ...string) error {
	for _, bucket := range buckets {
		if err := store.EnsureBucket(ctx, bucket); err != nil {
			return fmt.Errorf("ensure bucket %s: %w", bucket, err)
		}
	}
	return nil
}
