package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/hls"
	"github.com/fairpipe/fairpipe-api/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaster = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=800000\n360p/index.m3u8"

type mockOwnership struct {
	mock.Mock
}

func (m *mockOwnership) GetOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error) {
	args := m.Called(ctx, videoID, uploader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func setupSubtitles(t *testing.T) (*SubtitleService, *mockOwnership, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemory()
	require.NoError(t, store.EnsureBucket(context.Background(), "video"))
	owner := &mockOwnership{}
	return NewSubtitleService(owner, store, "video"), owner, store
}

func vtt(body string) UploadSubtitleInput {
	return UploadSubtitleInput{
		Language:      "English",
		LanguageShort: "en",
		FileName:      "en.vtt",
		ContentType:   "text/vtt",
		Size:          int64(len(body)),
		File:          strings.NewReader(body),
	}
}

func putMaster(t *testing.T, store *storage.MemoryStore, videoID uuid.UUID, content string) {
	t.Helper()
	err := store.Put(context.Background(), "video", hls.MasterKey(videoID.String()), strings.NewReader(content), int64(len(content)), hls.PlaylistContentType)
	require.NoError(t, err)
}

func TestSubtitleService_Upload(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("stores the track and advertises it", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)

		out, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n"))
		require.NoError(t, err)
		assert.Equal(t, "subs_en", out.SubtitleID)
		assert.Equal(t, "subs_en.vtt", out.Filename)

		track, err := store.Get(ctx, "video", video.ID.String()+"/subtitles/subs_en.vtt")
		require.NoError(t, err)
		assert.Equal(t, "WEBVTT\n", string(track))
		assert.Equal(t, hls.SubtitleContentType, store.ContentType("video", video.ID.String()+"/subtitles/subs_en.vtt"))

		playlist, err := store.Get(ctx, "video", video.ID.String()+"/subtitles/subs_en.m3u8")
		require.NoError(t, err)
		assert.Equal(t, hls.SubtitlePlaylist("subs_en.vtt"), string(playlist))

		master, err := store.Get(ctx, "video", hls.MasterKey(video.ID.String()))
		require.NoError(t, err)
		assert.Contains(t, string(master), hls.MediaLine("English", "en"))
		owner.AssertExpectations(t)
	})

	t.Run("re-upload replaces rather than duplicates", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)

		_, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n\nfirst"))
		require.NoError(t, err)
		_, err = svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n\nsecond"))
		require.NoError(t, err)

		master, err := store.Get(ctx, "video", hls.MasterKey(video.ID.String()))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(master), `LANGUAGE="en"`))

		list, err := svc.Get(ctx, video.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 1, list.Count)
	})

	t.Run("not owned reports not found and writes nothing", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		videoID := uuid.New()
		owner.On("GetOwned", mock.Anything, videoID, userID).Return(nil, db.ErrNotFound)

		_, err := svc.Upload(ctx, userID, videoID.String(), vtt("WEBVTT\n"))
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		keys, err := store.List(ctx, "video", videoID.String())
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("requires a processed video", func(t *testing.T) {
		svc, owner, _ := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)

		_, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n"))
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("rejects bad input before any lookup", func(t *testing.T) {
		svc, owner, _ := setupSubtitles(t)

		in := vtt("WEBVTT\n")
		in.LanguageShort = "../en"
		_, err := svc.Upload(ctx, userID, uuid.NewString(), in)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))

		in = vtt("x")
		in.FileName, in.ContentType = "en.srt", "application/x-subrip"
		_, err = svc.Upload(ctx, userID, uuid.NewString(), in)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))

		_, err = svc.Upload(ctx, userID, "not-a-uuid", vtt("WEBVTT\n"))
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))

		owner.AssertNotCalled(t, "GetOwned", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSubtitleService_Get(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, owner, store := setupSubtitles(t)
	video := &models.Video{ID: uuid.New(), Uploader: userID}
	owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
	putMaster(t, store, video.ID, testMaster)

	empty, err := svc.Get(ctx, video.ID.String())
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Languages)

	for _, short := range []string{"en", "de"} {
		in := vtt("WEBVTT\n")
		in.LanguageShort = short
		_, err := svc.Upload(ctx, userID, video.ID.String(), in)
		require.NoError(t, err)
	}

	list, err := svc.Get(ctx, video.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.ElementsMatch(t, []string{"en", "de"}, list.Languages)
	assert.Len(t, list.Files, 4)
}

// trackDeleteFails is a MemoryStore that cannot delete .vtt files.
type trackDeleteFails struct {
	*storage.MemoryStore
}

func (s trackDeleteFails) Delete(ctx context.Context, bucket, key string) error {
	if strings.HasSuffix(key, ".vtt") {
		return errors.New("object store unavailable")
	}
	return s.MemoryStore.Delete(ctx, bucket, key)
}

func TestSubtitleService_Delete(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("removes files and playlist entry", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)

		_, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n"))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, userID, video.ID.String(), "en"))

		list, err := svc.Get(ctx, video.ID.String())
		require.NoError(t, err)
		assert.Zero(t, list.Count)
		assert.Empty(t, list.Files)

		master, err := store.Get(ctx, "video", hls.MasterKey(video.ID.String()))
		require.NoError(t, err)
		assert.Equal(t, testMaster, string(master))
	})

	t.Run("unknown language is not found", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)

		err := svc.Delete(ctx, userID, video.ID.String(), "fr")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("non-owner cannot delete", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)
		_, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n"))
		require.NoError(t, err)

		intruder := uuid.New()
		owner.On("GetOwned", mock.Anything, video.ID, intruder).Return(nil, db.ErrNotFound)

		err = svc.Delete(ctx, intruder, video.ID.String(), "en")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		list, err := svc.Get(ctx, video.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 1, list.Count)
	})

	t.Run("partial failure never advertises a track without its playlist", func(t *testing.T) {
		svc, owner, store := setupSubtitles(t)
		video := &models.Video{ID: uuid.New(), Uploader: userID}
		owner.On("GetOwned", mock.Anything, video.ID, userID).Return(video, nil)
		putMaster(t, store, video.ID, testMaster)
		_, err := svc.Upload(ctx, userID, video.ID.String(), vtt("WEBVTT\n"))
		require.NoError(t, err)

		flaky := NewSubtitleService(owner, trackDeleteFails{store}, "video")
		err = flaky.Delete(ctx, userID, video.ID.String(), "en")
		assert.True(t, apperr.Is(err, apperr.KindInternal))

		master, err := store.Get(ctx, "video", hls.MasterKey(video.ID.String()))
		require.NoError(t, err)
		assert.NotContains(t, string(master), `LANGUAGE="en"`)

		playlist, err := store.Exists(ctx, "video", hls.SubtitleKey(video.ID.String(), hls.SubtitlePlaylistFile("en")))
		require.NoError(t, err)
		assert.False(t, playlist)

		require.NoError(t, svc.Delete(ctx, userID, video.ID.String(), "en"))
		list, err := svc.Get(ctx, video.ID.String())
		require.NoError(t, err)
		assert.Empty(t, list.Files)
	})
}
