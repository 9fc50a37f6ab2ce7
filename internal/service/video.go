package service

import (
	"context"
	"fmt"
	"io"
	"strings"

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

// JobQueue hands uploads to the downstream processing workers.
type JobQueue interface {
	PublishResolution(ctx context.Context, job Job) error
	PublishTranscription(ctx context.Context, job Job) error
}

// RefreshRequester asks for an out-of-band trending refresh.
type RefreshRequester interface {
	RequestRefresh(ctx context.Context, reason string) error
}

// Buckets names the object store buckets.
type Buckets struct {
	Upload string
	Video  string
	Photo  string
}

// UploadVideoInput is a validated multipart video upload.
type UploadVideoInput struct {
	UploaderID      uuid.UUID
	Title           string
	Description     string
	ManualSubtitles bool
	FileName        string
	ContentType     string
	Size            int64
	File            io.ReadSeeker
}

// VideoService implements video upload, retrieval, update and deletion.
type VideoService struct {
	db      Database
	store   storage.ObjectStore
	jobs    JobQueue
	buckets Buckets
	refresh RefreshRequester
}

// NewVideoService creates a new VideoService. refresh may be nil.
func NewVideoService(database Database, store storage.ObjectStore, jobs JobQueue, buckets Buckets, refresh RefreshRequester) *VideoService {
	return &VideoService{
		db:      database,
		store:   store,
		jobs:    jobs,
		buckets: buckets,
		refresh: refresh,
	}
}

// Upload stores the file, records the video and publishes processing jobs.
// Any failure rolls back the row and removes the objects already written.
func (s *VideoService) Upload(ctx context.Context, in UploadVideoInput) (uuid.UUID, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return uuid.Nil, apperr.BadRequest("title is required")
	}
	if !media.IsVideo(in.ContentType) {
		return uuid.Nil, apperr.BadRequest("file must be a video")
	}

	ext := media.Extension(in.FileName, in.ContentType)

	var duration *int32
	if media.HasMP4Container(ext) {
		d, err := media.Duration(in.File)
		if err != nil {
			logger.Log.Warn("Could not read video duration", zap.String("file", in.FileName), zap.Error(err))
		} else {
			duration = &d
		}
	}

	video := models.NewVideo(in.UploaderID, title, strings.TrimSpace(in.Description), ext, duration)

	var written []string
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := repository.NewVideoRepository(tx).Create(ctx, video); err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Wrap(apperr.KindNotFound, "user not found", err)
			}
			return apperr.Internal(err)
		}

		for _, bucket := range []string{s.buckets.Upload, s.buckets.Video} {
			if _, err := in.File.Seek(0, io.SeekStart); err != nil {
				return apperr.Internal(fmt.Errorf("rewind upload: %w", err))
			}
			if err := s.store.Put(ctx, bucket, video.ObjectKey, in.File, in.Size, in.ContentType); err != nil {
				return apperr.Internal(fmt.Errorf("store video in %s: %w", bucket, err))
			}
			written = append(written, bucket)
		}

		job := Job{JobID: video.ID, ObjectKey: video.ObjectKey}
		if err := s.jobs.PublishResolution(ctx, job); err != nil {
			return apperr.Internal(err)
		}
		if !in.ManualSubtitles {
			if err := s.jobs.PublishTranscription(ctx, job); err != nil {
				return apperr.Internal(err)
			}
		}
		return nil
	})
	if err != nil {
		s.removeObjects(video.ObjectKey, written)
		return uuid.Nil, err
	}

	logger.Log.Info("Video uploaded",
		zap.String("videoId", video.ID.String()),
		zap.String("uploader", in.UploaderID.String()),
	)
	s.requestRefresh(ctx, "upload")

	return video.ID, nil
}

func (s *VideoService) removeObjects(key string, buckets []string) {
	// the request context may already be cancelled
	ctx := context.Background()
	for _, bucket := range buckets {
		if err := s.store.Delete(ctx, bucket, key); err != nil {
			logger.Log.Error("Failed to remove orphaned object",
				zap.String("bucket", bucket),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

func (s *VideoService) requestRefresh(ctx context.Context, reason string) {
	if s.refresh == nil {
		return
	}
	if err := s.refresh.RequestRefresh(ctx, reason); err != nil {
		logger.Log.Warn("Failed to request trending refresh", zap.String("reason", reason), zap.Error(err))
	}
}

// Get returns a video with its active thumbnail and uploader.
func (s *VideoService) Get(ctx context.Context, rawID string) (*models.VideoDetails, error) {
	id, err := ParseID(rawID, "video id")
	if err != nil {
		return nil, err
	}

	details, err := repository.NewVideoRepository(s.db).GetDetails(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "video not found")
	}
	return details, nil
}

// Update sets the given metadata fields on a video the user owns.
func (s *VideoService) Update(ctx context.Context, userID uuid.UUID, rawID string, title, description *string) error {
	id, err := ParseID(rawID, "video id")
	if err != nil {
		return err
	}
	if title == nil && description == nil {
		return apperr.BadRequest("nothing to update")
	}
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return apperr.BadRequest("title must not be empty")
		}
		title = &trimmed
	}

	err = repository.NewVideoRepository(s.db).UpdateMetadata(ctx, id, userID, title, description)
	return notFoundOr(err, "video not found")
}

// Delete removes a video the user owns, then its objects in both buckets.
func (s *VideoService) Delete(ctx context.Context, userID uuid.UUID, rawID string) error {
	id, err := ParseID(rawID, "video id")
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		videos := repository.NewVideoRepository(tx)
		if _, err := videos.LockOwned(ctx, id, userID); err != nil {
			return notFoundOr(err, "video not found")
		}
		if _, err := repository.NewPhotoRepository(tx).DeleteForVideo(ctx, id); err != nil {
			return apperr.Internal(err)
		}
		return notFoundOr(videos.Delete(ctx, id, userID), "video not found")
	})
	if err != nil {
		return err
	}

	prefix := id.String() + "/"
	for _, bucket := range []string{s.buckets.Upload, s.buckets.Video} {
		n, err := storage.DeletePrefix(ctx, s.store, bucket, prefix)
		if err != nil {
			logger.Log.Warn("Failed to remove video objects",
				zap.String("bucket", bucket),
				zap.String("prefix", prefix),
				zap.Int("removed", n),
				zap.Error(err),
			)
		}
	}

	s.requestRefresh(ctx, "delete")
	return nil
}

// List returns videos newest first, optionally for one uploader.
func (s *VideoService) List(ctx context.Context, rawUploader string, limit, offset int) ([]*models.Video, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	filters := &repository.VideoFilters{Limit: limit, Offset: offset}
	if rawUploader != "" {
		uploader, err := ParseID(rawUploader, "uploader id")
		if err != nil {
			return nil, err
		}
		filters.Uploader = &uploader
	}

	videos, err := repository.NewVideoRepository(s.db).List(ctx, filters)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return videos, nil
}
