package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/hls"
	"github.com/fairpipe/fairpipe-api/internal/media"
	"github.com/fairpipe/fairpipe-api/internal/storage"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VideoOwnership looks up a video only if the user uploaded it.
type VideoOwnership interface {
	GetOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error)
}

// UploadSubtitleInput is a validated subtitle upload.
type UploadSubtitleInput struct {
	Language      string
	LanguageShort string
	FileName      string
	ContentType   string
	Size          int64
	File          io.Reader
}

// SubtitleUpload describes a stored subtitle track.
type SubtitleUpload struct {
	SubtitleID string `json:"subtitle_id"`
	Filename   string `json:"filename"`
}

// SubtitleList summarises the subtitle tracks of a video.
type SubtitleList struct {
	Count     int      `json:"count"`
	Languages []string `json:"languages"`
	Files     []string `json:"files"`
}

// SubtitleService stores WebVTT tracks next to a video's renditions and
// advertises them in its master playlist.
type SubtitleService struct {
	videos VideoOwnership
	store  storage.ObjectStore
	bucket string
}

// NewSubtitleService creates a new SubtitleService writing into bucket.
func NewSubtitleService(videos VideoOwnership, store storage.ObjectStore, bucket string) *SubtitleService {
	return &SubtitleService{videos: videos, store: store, bucket: bucket}
}

// Upload stores or replaces the track for a language on a video the user owns.
func (s *SubtitleService) Upload(ctx context.Context, userID uuid.UUID, rawVideoID string, in UploadSubtitleInput) (*SubtitleUpload, error) {
	if !hls.ValidLanguage(in.Language) || !hls.ValidLanguage(in.LanguageShort) {
		return nil, apperr.BadRequest("invalid language")
	}
	if !media.IsWebVTT(in.FileName, in.ContentType) {
		return nil, apperr.BadRequest("file must be a WebVTT subtitle")
	}

	video, err := s.owned(ctx, userID, rawVideoID)
	if err != nil {
		return nil, err
	}
	videoID := video.ID.String()

	master, err := s.store.Get(ctx, s.bucket, hls.MasterKey(videoID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.NotFound("video has not been processed yet")
		}
		return nil, apperr.Internal(err)
	}
	if strings.TrimSpace(string(master)) == "" {
		return nil, apperr.Conflict("master playlist is empty")
	}

	vttFile := hls.SubtitleFile(in.LanguageShort)
	if err := s.store.Put(ctx, s.bucket, hls.SubtitleKey(videoID, vttFile), in.File, in.Size, hls.SubtitleContentType); err != nil {
		return nil, apperr.Internal(fmt.Errorf("store subtitle: %w", err))
	}

	playlist := hls.SubtitlePlaylist(vttFile)
	if err := s.putText(ctx, hls.SubtitleKey(videoID, hls.SubtitlePlaylistFile(in.LanguageShort)), playlist); err != nil {
		return nil, apperr.Internal(fmt.Errorf("store subtitle playlist: %w", err))
	}

	updated := hls.UpsertSubtitleMedia(string(master), in.Language, in.LanguageShort)
	if err := s.putText(ctx, hls.MasterKey(videoID), updated); err != nil {
		return nil, apperr.Internal(fmt.Errorf("update master playlist: %w", err))
	}

	return &SubtitleUpload{
		SubtitleID: hls.SubtitleID(in.LanguageShort),
		Filename:   vttFile,
	}, nil
}

// Get lists the subtitle objects of a video.
func (s *SubtitleService) Get(ctx context.Context, rawVideoID string) (*SubtitleList, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}

	keys, err := s.store.List(ctx, s.bucket, hls.SubtitlePrefix(videoID.String()))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	list := &SubtitleList{Languages: []string{}, Files: []string{}}
	seen := make(map[string]bool)
	for _, key := range keys {
		short, ok := hls.LanguageOf(key)
		if !ok {
			continue
		}
		list.Files = append(list.Files, key)
		if hls.IsSubtitleTrack(key) {
			list.Count++
		}
		if !seen[short] {
			seen[short] = true
			list.Languages = append(list.Languages, short)
		}
	}

	return list, nil
}

// Delete removes the track for a short language code and its playlist entry.
func (s *SubtitleService) Delete(ctx context.Context, userID uuid.UUID, rawVideoID, short string) error {
	if !hls.ValidLanguage(short) {
		return apperr.BadRequest("invalid language")
	}

	video, err := s.owned(ctx, userID, rawVideoID)
	if err != nil {
		return err
	}
	videoID := video.ID.String()

	keys, err := s.store.List(ctx, s.bucket, hls.SubtitlePrefix(videoID))
	if err != nil {
		return apperr.Internal(err)
	}

	var playlists, tracks []string
	for _, key := range keys {
		if lang, ok := hls.LanguageOf(key); !ok || lang != short {
			continue
		}
		if hls.IsSubtitleTrack(key) {
			tracks = append(tracks, key)
		} else {
			playlists = append(playlists, key)
		}
	}
	if len(playlists)+len(tracks) == 0 {
		return apperr.NotFound("subtitle not found for this language")
	}

	// Unadvertise first, then remove the playlist before the track it points
	// at. A failure part way leaves leftovers that a retry cleans up.
	master, err := s.store.Get(ctx, s.bucket, hls.MasterKey(videoID))
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
	case err != nil:
		return apperr.Internal(fmt.Errorf("read master playlist: %w", err))
	case strings.TrimSpace(string(master)) != "":
		if err := s.putText(ctx, hls.MasterKey(videoID), hls.RemoveSubtitleMedia(string(master), short)); err != nil {
			return apperr.Internal(fmt.Errorf("update master playlist: %w", err))
		}
	}

	for _, key := range append(playlists, tracks...) {
		if err := s.store.Delete(ctx, s.bucket, key); err != nil {
			logger.Log.Warn("Subtitle partially removed",
				zap.String("videoId", videoID),
				zap.String("language", short),
				zap.String("key", key),
				zap.Error(err),
			)
			return apperr.Internal(fmt.Errorf("remove subtitle %s: %w", key, err))
		}
	}

	return nil
}

func (s *SubtitleService) owned(ctx context.Context, userID uuid.UUID, rawVideoID string) (*models.Video, error) {
	videoID, err := ParseID(rawVideoID, "video id")
	if err != nil {
		return nil, err
	}

	video, err := s.videos.GetOwned(ctx, videoID, userID)
	if err != nil {
		return nil, notFoundOr(err, "video not found")
	}
	return video, nil
}

func (s *SubtitleService) putText(ctx context.Context, key, content string) error {
	return s.store.Put(ctx, s.bucket, key, bytes.NewReader([]byte(content)), int64(len(content)), hls.PlaylistContentType)
}
