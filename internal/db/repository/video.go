package repository

import (
	"context"
	"fmt"

	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// trendingScoreSQL ranks a video by its counters with a fresh random jitter
// per row, so equally popular videos rotate between refreshes.
const trendingScoreSQL = `(((likes * 2 + views * 0.1 - dislikes * 3) + 1) * (1 + random())) - 1`

// baseScoreSQL is the same ranking without jitter.
const baseScoreSQL = `(likes * 2 + views * 0.1 - dislikes * 3)`

const videoColumns = `video_id, path, object_key, duration, title, description, is_age_restricted,
	views, likes, dislikes, uploader, thumbnail_id, created_at, updated_at`

// VideoRepository defines operations for managing videos.
type VideoRepository interface {
	// Create inserts a new video row.
	Create(ctx context.Context, video *models.Video) error

	// GetByID retrieves a single video by ID.
	GetByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error)

	// GetDetails retrieves a video joined with its active thumbnail and uploader.
	GetDetails(ctx context.Context, videoID uuid.UUID) (*models.VideoDetails, error)

	// GetOwned retrieves a video only if uploader owns it. Otherwise ErrNotFound.
	GetOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error)

	// LockOwned is GetOwned with a row lock held until the transaction ends.
	LockOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error)

	// UpdateMetadata sets the non-nil fields of an owned video.
	UpdateMetadata(ctx context.Context, videoID, uploader uuid.UUID, title, description *string) error

	// Delete removes an owned video.
	Delete(ctx context.Context, videoID, uploader uuid.UUID) error

	// List retrieves videos newest first.
	List(ctx context.Context, filters *VideoFilters) ([]*models.Video, error)

	// LockCounters reads likes and dislikes under a row lock.
	LockCounters(ctx context.Context, videoID uuid.UUID) (likes, dislikes int64, err error)

	// AddCounters applies deltas to likes and dislikes and returns the new values.
	AddCounters(ctx context.Context, videoID uuid.UUID, likesDelta, dislikesDelta int64) (likes, dislikes int64, err error)

	// SetThumbnail points the video at its active thumbnail, or clears it.
	SetThumbnail(ctx context.Context, videoID uuid.UUID, thumbnailID *uuid.UUID) error

	// RankTrending returns every video ordered by the jittered trending score.
	RankTrending(ctx context.Context) ([]*models.RankedVideo, error)

	// ListByScore returns a page of videos ordered by the unjittered score.
	ListByScore(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error)
}

// VideoFilters narrows List.
type VideoFilters struct {
	Uploader *uuid.UUID
	Limit    int
	Offset   int
}

type videoRepository struct {
	q db.DBTX
}

// NewVideoRepository creates a new VideoRepository on a pool or a transaction.
func NewVideoRepository(q db.DBTX) VideoRepository {
	return &videoRepository{q: q}
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (video_id, path, object_key, duration, title, description, is_age_restricted, uploader, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		video.ID,
		video.Path,
		video.ObjectKey,
		video.Duration,
		video.Title,
		video.Description,
		video.IsAgeRestricted,
		video.Uploader,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1`

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) GetDetails(ctx context.Context, videoID uuid.UUID) (*models.VideoDetails, error) {
	query := `
		SELECT v.video_id, v.path, v.object_key, v.duration, v.title, v.description, v.is_age_restricted,
		       v.views, v.likes, v.dislikes, v.uploader, v.thumbnail_id, v.created_at, v.updated_at,
		       p.path, u.username, u.display_name
		FROM videos v
		JOIN users u ON u.user_id = v.uploader
		LEFT JOIN thumbnails t ON t.thumbnail_id = v.thumbnail_id
		LEFT JOIN photo p ON p.photo_id = t.photo_id
		WHERE v.video_id = $1
	`

	d := &models.VideoDetails{}
	err := r.q.QueryRow(ctx, query, videoID).Scan(
		&d.ID,
		&d.Path,
		&d.ObjectKey,
		&d.Duration,
		&d.Title,
		&d.Description,
		&d.IsAgeRestricted,
		&d.Views,
		&d.Likes,
		&d.Dislikes,
		&d.Uploader,
		&d.ThumbnailID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ThumbnailPath,
		&d.UploaderUsername,
		&d.UploaderDisplayName,
	)
	if err != nil {
		return nil, db.WrapError(err, "get video details")
	}

	return d, nil
}

func (r *videoRepository) GetOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1 AND uploader = $2`

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID, uploader))
	if err != nil {
		return nil, db.WrapError(err, "get owned video")
	}

	return video, nil
}

func (r *videoRepository) LockOwned(ctx context.Context, videoID, uploader uuid.UUID) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1 AND uploader = $2 FOR UPDATE`

	video, err := scanVideo(r.q.QueryRow(ctx, query, videoID, uploader))
	if err != nil {
		return nil, db.WrapError(err, "lock owned video")
	}

	return video, nil
}

func (r *videoRepository) UpdateMetadata(ctx context.Context, videoID, uploader uuid.UUID, title, description *string) error {
	query := `
		UPDATE videos
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    updated_at = NOW()
		WHERE video_id = $1 AND uploader = $2
	`

	result, err := r.q.Exec(ctx, query, videoID, uploader, title, description)
	if err != nil {
		return db.WrapError(err, "update video metadata")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update video metadata: %w", db.ErrNotFound)
	}

	return nil
}

func (r *videoRepository) Delete(ctx context.Context, videoID, uploader uuid.UUID) error {
	query := `DELETE FROM videos WHERE video_id = $1 AND uploader = $2`

	result, err := r.q.Exec(ctx, query, videoID, uploader)
	if err != nil {
		return db.WrapError(err, "delete video")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete video: %w", db.ErrNotFound)
	}

	return nil
}

func (r *videoRepository) List(ctx context.Context, filters *VideoFilters) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	args := []interface{}{}
	argPos := 1

	if filters.Uploader != nil {
		query += fmt.Sprintf(" WHERE uploader = $%d", argPos)
		args = append(args, *filters.Uploader)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.WrapError(err, "list videos")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) LockCounters(ctx context.Context, videoID uuid.UUID) (int64, int64, error) {
	query := `SELECT likes, dislikes FROM videos WHERE video_id = $1 FOR UPDATE`

	var likes, dislikes int64
	if err := r.q.QueryRow(ctx, query, videoID).Scan(&likes, &dislikes); err != nil {
		return 0, 0, db.WrapError(err, "lock video counters")
	}

	return likes, dislikes, nil
}

func (r *videoRepository) AddCounters(ctx context.Context, videoID uuid.UUID, likesDelta, dislikesDelta int64) (int64, int64, error) {
	query := `
		UPDATE videos
		SET likes = likes + $2, dislikes = dislikes + $3
		WHERE video_id = $1
		RETURNING likes, dislikes
	`

	var likes, dislikes int64
	if err := r.q.QueryRow(ctx, query, videoID, likesDelta, dislikesDelta).Scan(&likes, &dislikes); err != nil {
		return 0, 0, db.WrapError(err, "update video counters")
	}

	return likes, dislikes, nil
}

func (r *videoRepository) SetThumbnail(ctx context.Context, videoID uuid.UUID, thumbnailID *uuid.UUID) error {
	query := `UPDATE videos SET thumbnail_id = $2, updated_at = NOW() WHERE video_id = $1`

	result, err := r.q.Exec(ctx, query, videoID, thumbnailID)
	if err != nil {
		return db.WrapError(err, "set video thumbnail")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("set video thumbnail: %w", db.ErrNotFound)
	}

	return nil
}

func (r *videoRepository) RankTrending(ctx context.Context) ([]*models.RankedVideo, error) {
	query := `SELECT video_id, (` + trendingScoreSQL + `)::float8 AS score FROM videos ORDER BY score DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "rank trending videos")
	}
	defer rows.Close()

	return scanRanked(rows)
}

func (r *videoRepository) ListByScore(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error) {
	query := `
		SELECT video_id, ` + baseScoreSQL + `::float8 AS score
		FROM videos
		ORDER BY score DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list videos by score")
	}
	defer rows.Close()

	return scanRanked(rows)
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	video := &models.Video{}
	err := row.Scan(
		&video.ID,
		&video.Path,
		&video.ObjectKey,
		&video.Duration,
		&video.Title,
		&video.Description,
		&video.IsAgeRestricted,
		&video.Views,
		&video.Likes,
		&video.Dislikes,
		&video.Uploader,
		&video.ThumbnailID,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	videos := []*models.Video{}

	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

func scanRanked(rows pgx.Rows) ([]*models.RankedVideo, error) {
	ranked := []*models.RankedVideo{}

	for rows.Next() {
		rv := &models.RankedVideo{}
		if err := rows.Scan(&rv.ID, &rv.Score); err != nil {
			return nil, fmt.Errorf("scan ranked video: %w", err)
		}
		ranked = append(ranked, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked videos: %w", err)
	}

	return ranked, nil
}
