package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/media"
	"github.com/fairpipe/fairpipe-api/internal/storage"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UploadImageInput is a validated multipart image upload.
type UploadImageInput struct {
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

// ThumbnailService manages the thumbnails of a video. At most one is active.
type ThumbnailService struct {
	db            Database
	store         storage.ObjectStore
	buckets       Buckets
	maxThumbnails int
}

// NewThumbnailService creates a new ThumbnailService.
func NewThumbnailService(database Database, store storage.ObjectStore, buckets Buckets, maxThumbnails int) *ThumbnailService {
	return &ThumbnailService{
		db:            database,
		store:         store,
		buckets:       buckets,
		maxThumbnails: maxThumbnails,
	}
}

// Upload adds a thumbnail to a video the user owns. The first thumbnail of
// a video becomes its active one.
func (s *ThumbnailService) Upload(ctx context.Context, userID uuid.UUID, rawVideoID string, in UploadImageInput) (*models.Thumbnail, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}
	if !media.IsImage(in.ContentType) {
		return nil, apperr.BadRequest("file must be an image")
	}

	thumbnail := &models.Thumbnail{
		ID:        uuid.New(),
		PhotoID:   uuid.New(),
		VideoID:   videoID,
		CreatedAt: time.Now(),
	}
	thumbnail.Path = fmt.Sprintf("%s/thumbnails/%s.%s", videoID, thumbnail.ID, media.Extension(in.FileName, in.ContentType))

	stored := false
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		videos := repository.NewVideoRepository(tx)
		thumbnails := repository.NewThumbnailRepository(tx)

		video, err := videos.LockOwned(ctx, videoID, userID)
		if err != nil {
			return notFoundOr(err, "video not found")
		}

		count, err := thumbnails.CountForVideo(ctx, videoID)
		if err != nil {
			return apperr.Internal(err)
		}
		if count >= s.maxThumbnails {
			return apperr.BadRequest(fmt.Sprintf("a video can have at most %d thumbnails", s.maxThumbnails))
		}

		uploaded, err := s.store.Exists(ctx, s.buckets.Upload, video.ObjectKey)
		if err != nil {
			return apperr.Internal(err)
		}
		if !uploaded {
			return apperr.NotFound("video file not found")
		}

		photo := &models.Photo{ID: thumbnail.PhotoID, Path: thumbnail.Path, CreatedAt: thumbnail.CreatedAt}
		if err := repository.NewPhotoRepository(tx).Create(ctx, photo); err != nil {
			return apperr.Internal(err)
		}

		hasActive, err := thumbnails.HasActive(ctx, videoID)
		if err != nil {
			return apperr.Internal(err)
		}
		thumbnail.IsActive = !hasActive

		if err := thumbnails.Create(ctx, thumbnail); err != nil {
			return apperr.Internal(err)
		}
		if thumbnail.IsActive {
			if err := videos.SetThumbnail(ctx, videoID, &thumbnail.ID); err != nil {
				return apperr.Internal(err)
			}
		}

		if err := s.store.Put(ctx, s.buckets.Video, thumbnail.Path, in.File, in.Size, in.ContentType); err != nil {
			return apperr.Internal(fmt.Errorf("store thumbnail: %w", err))
		}
		stored = true
		return nil
	})
	if err != nil {
		if stored {
			if delErr := s.store.Delete(context.Background(), s.buckets.Video, thumbnail.Path); delErr != nil {
				logger.Log.Error("Failed to remove orphaned thumbnail", zap.String("key", thumbnail.Path), zap.Error(delErr))
			}
		}
		return nil, err
	}

	return thumbnail, nil
}

// Get returns one thumbnail.
func (s *ThumbnailService) Get(ctx context.Context, rawID string) (*models.Thumbnail, error) {
	id, err := ParseID(rawID, "thumbnail id")
	if err != nil {
		return nil, err
	}

	thumbnail, err := repository.NewThumbnailRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "thumbnail not found")
	}
	return thumbnail, nil
}

// List returns the thumbnails of a video, oldest first.
func (s *ThumbnailService) List(ctx context.Context, rawVideoID string) ([]*models.Thumbnail, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}

	if _, err := repository.NewVideoRepository(s.db).GetByID(ctx, videoID); err != nil {
		return nil, notFoundOr(err, "video not found")
	}

	thumbnails, err := repository.NewThumbnailRepository(s.db).ListForVideo(ctx, videoID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return thumbnails, nil
}

// Activate makes a thumbnail the active one of its video.
func (s *ThumbnailService) Activate(ctx context.Context, userID uuid.UUID, rawID string) error {
	id, err := ParseID(rawID, "thumbnail id")
	if err != nil {
		return err
	}

	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		thumbnails := repository.NewThumbnailRepository(tx)

		thumbnail, err := thumbnails.LockOwned(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, "thumbnail not found")
		}

		if err := thumbnails.DeactivateAll(ctx, thumbnail.VideoID); err != nil {
			return apperr.Internal(err)
		}
		if err := thumbnails.Activate(ctx, id); err != nil {
			return apperr.Internal(err)
		}
		if err := repository.NewVideoRepository(tx).SetThumbnail(ctx, thumbnail.VideoID, &id); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}

// Delete removes a thumbnail, its photo row and its object. A storage
// failure rolls the rows back, and a failed commit puts the object back.
func (s *ThumbnailService) Delete(ctx context.Context, userID uuid.UUID, rawID string) error {
	id, err := ParseID(rawID, "thumbnail id")
	if err != nil {
		return err
	}

	var (
		path    string
		removed []byte
	)
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		thumbnails := repository.NewThumbnailRepository(tx)

		thumbnail, err := thumbnails.LockOwned(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, "thumbnail not found")
		}

		if err := thumbnails.Delete(ctx, id); err != nil {
			return apperr.Internal(err)
		}
		if err := repository.NewPhotoRepository(tx).Delete(ctx, thumbnail.PhotoID); err != nil {
			return apperr.Internal(err)
		}

		data, err := s.store.Get(ctx, s.buckets.Video, thumbnail.Path)
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return apperr.Internal(fmt.Errorf("read thumbnail object: %w", err))
		}
		if err := s.store.Delete(ctx, s.buckets.Video, thumbnail.Path); err != nil {
			return apperr.Internal(fmt.Errorf("remove thumbnail object: %w", err))
		}
		path, removed = thumbnail.Path, data
		return nil
	})
	if err == nil {
		return nil
	}

	// the object is gone only if the commit itself failed
	if removed != nil {
		s.restoreObject(path, removed)
	}
	return notFoundOr(err, "thumbnail not found")
}

func (s *ThumbnailService) restoreObject(key string, data []byte) {
	err := s.store.Put(context.Background(), s.buckets.Video, key, bytes.NewReader(data), int64(len(data)), media.DetectContentType(data))
	if err != nil {
		logger.Log.Error("Thumbnail row kept without its object",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
