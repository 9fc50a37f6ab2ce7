//go:build integration
// +build integration

package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db/repository"
	"github.com/fairpipe/fairpipe-api/internal/db/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoInput(uploader uuid.UUID, title string) UploadVideoInput {
	content := []byte("fake webm payload")
	return UploadVideoInput{
		UploaderID:  uploader,
		Title:       title,
		Description: "a description",
		FileName:    "clip.webm",
		ContentType: "video/webm",
		Size:        int64(len(content)),
		File:        bytes.NewReader(content),
	}
}

func strPtr(s string) *string { return &s }

func TestVideoService_Upload(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	ctx := context.Background()

	t.Run("stores objects publishes jobs and round trips", func(t *testing.T) {
		td.TruncateTables(t)
		store := newTestStore(t)
		jobs := &recordingJobs{}
		refresh := &recordingRefresh{}
		svc := NewVideoService(td.Pool, store, jobs, testBuckets, refresh)
		uploader := td.CreateUser(t, "alice")

		id, err := svc.Upload(ctx, videoInput(uploader, "  My first video "))
		require.NoError(t, err)

		got, err := svc.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, "My first video", got.Title)
		assert.Equal(t, "a description", got.Description)
		assert.Equal(t, uploader, got.Uploader)
		assert.Equal(t, "alice", got.UploaderUsername)
		assert.Nil(t, got.Duration)

		key := id.String() + "/" + id.String() + ".webm"
		assert.Equal(t, key, got.ObjectKey)
		for _, bucket := range []string{testBuckets.Upload, testBuckets.Video} {
			data, err := store.Get(ctx, bucket, key)
			require.NoError(t, err, bucket)
			assert.Equal(t, "fake webm payload", string(data))
		}

		require.Len(t, jobs.resolution, 1)
		require.Len(t, jobs.transcription, 1)
		assert.Equal(t, Job{JobID: id, ObjectKey: key}, jobs.resolution[0])
		assert.Equal(t, []string{"upload"}, refresh.reasons)
	})

	t.Run("manual subtitles skip transcription", func(t *testing.T) {
		td.TruncateTables(t)
		jobs := &recordingJobs{}
		svc := NewVideoService(td.Pool, newTestStore(t), jobs, testBuckets, nil)

		in := videoInput(td.CreateUser(t, "alice"), "subbed")
		in.ManualSubtitles = true
		_, err := svc.Upload(ctx, in)
		require.NoError(t, err)

		assert.Len(t, jobs.resolution, 1)
		assert.Empty(t, jobs.transcription)
	})

	t.Run("unreadable mp4 still uploads without duration", func(t *testing.T) {
		td.TruncateTables(t)
		svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)

		in := videoInput(td.CreateUser(t, "alice"), "broken mp4")
		in.FileName = "clip.mp4"
		in.ContentType = "video/mp4"
		id, err := svc.Upload(ctx, in)
		require.NoError(t, err)

		got, err := svc.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Nil(t, got.Duration)
	})

	t.Run("publish failure rolls back row and objects", func(t *testing.T) {
		td.TruncateTables(t)
		store := newTestStore(t)
		svc := NewVideoService(td.Pool, store, &recordingJobs{failWith: errors.New("broker down")}, testBuckets, nil)
		uploader := td.CreateUser(t, "alice")

		_, err := svc.Upload(ctx, videoInput(uploader, "doomed"))
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInternal))

		videos, err := repository.NewVideoRepository(td.Pool).List(ctx, &repository.VideoFilters{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, videos)

		for _, bucket := range []string{testBuckets.Upload, testBuckets.Video} {
			keys, err := store.List(ctx, bucket, "")
			require.NoError(t, err)
			assert.Empty(t, keys, bucket)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)

		in := videoInput(uuid.New(), "   ")
		_, err := svc.Upload(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))

		in = videoInput(uuid.New(), "picture")
		in.ContentType = "image/png"
		_, err = svc.Upload(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	})

	t.Run("unknown uploader is not found", func(t *testing.T) {
		td.TruncateTables(t)
		svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)

		_, err := svc.Upload(ctx, videoInput(uuid.New(), "ghost"))
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestVideoService_UpdateAndDelete(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	ctx := context.Background()

	t.Run("update title keeps description", func(t *testing.T) {
		td.TruncateTables(t)
		svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)
		owner := td.CreateUser(t, "owner")
		id, err := svc.Upload(ctx, videoInput(owner, "before"))
		require.NoError(t, err)

		require.NoError(t, svc.Update(ctx, owner, id.String(), strPtr("after"), nil))

		got, err := svc.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, "after", got.Title)
		assert.Equal(t, "a description", got.Description)
	})

	t.Run("non-owner update and delete are not found and change nothing", func(t *testing.T) {
		td.TruncateTables(t)
		store := newTestStore(t)
		svc := NewVideoService(td.Pool, store, &recordingJobs{}, testBuckets, nil)
		owner := td.CreateUser(t, "owner")
		intruder := td.CreateUser(t, "intruder")
		id, err := svc.Upload(ctx, videoInput(owner, "mine"))
		require.NoError(t, err)

		err = svc.Update(ctx, intruder, id.String(), strPtr("theirs"), strPtr("x"))
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		err = svc.Delete(ctx, intruder, id.String())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		got, err := svc.Get(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, "mine", got.Title)
		assert.Equal(t, "a description", got.Description)

		keys, err := store.List(ctx, testBuckets.Video, id.String()+"/")
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("update validation", func(t *testing.T) {
		svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)
		id := uuid.NewString()

		assert.True(t, apperr.Is(svc.Update(ctx, uuid.New(), id, nil, nil), apperr.KindBadRequest))
		assert.True(t, apperr.Is(svc.Update(ctx, uuid.New(), id, strPtr("  "), nil), apperr.KindBadRequest))
		assert.True(t, apperr.Is(svc.Update(ctx, uuid.New(), "nope", strPtr("t"), nil), apperr.KindBadRequest))
	})

	t.Run("owner delete removes row thumbnails and objects", func(t *testing.T) {
		td.TruncateTables(t)
		store := newTestStore(t)
		refresh := &recordingRefresh{}
		videos := NewVideoService(td.Pool, store, &recordingJobs{}, testBuckets, refresh)
		thumbnails := NewThumbnailService(td.Pool, store, testBuckets, 5)
		owner := td.CreateUser(t, "owner")

		id, err := videos.Upload(ctx, videoInput(owner, "short lived"))
		require.NoError(t, err)
		thumb, err := thumbnails.Upload(ctx, owner, id.String(), imageInput())
		require.NoError(t, err)

		require.NoError(t, videos.Delete(ctx, owner, id.String()))

		_, err = videos.Get(ctx, id.String())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		_, err = thumbnails.Get(ctx, thumb.ID.String())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		for _, bucket := range []string{testBuckets.Upload, testBuckets.Video} {
			keys, err := store.List(ctx, bucket, id.String()+"/")
			require.NoError(t, err)
			assert.Empty(t, keys, bucket)
		}
		assert.Equal(t, []string{"upload", "delete"}, refresh.reasons)
	})
}

func TestVideoService_List(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	ctx := context.Background()
	td.TruncateTables(t)
	svc := NewVideoService(td.Pool, newTestStore(t), &recordingJobs{}, testBuckets, nil)
	alice := td.CreateUser(t, "alice")
	bob := td.CreateUser(t, "bob")
	td.CreateVideo(t, alice, "a1", 0, 0, 0)
	td.CreateVideo(t, alice, "a2", 0, 0, 0)
	td.CreateVideo(t, bob, "b1", 0, 0, 0)

	all, err := svc.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.List(ctx, alice.String(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = svc.List(ctx, "not-a-uuid", 10, 0)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.List(ctx, "", 0, 0)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}
