package repository

import (
	"context"
	"fmt"

	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ThumbnailRepository defines operations for managing thumbnails.
type ThumbnailRepository interface {
	// Create inserts a thumbnail row. The photo row must exist.
	Create(ctx context.Context, thumbnail *models.Thumbnail) error

	// GetByID retrieves a thumbnail with its photo path.
	GetByID(ctx context.Context, thumbnailID uuid.UUID) (*models.Thumbnail, error)

	// LockOwned retrieves a thumbnail under a row lock if uploader owns its video.
	LockOwned(ctx context.Context, thumbnailID, uploader uuid.UUID) (*models.Thumbnail, error)

	// ListForVideo lists a video's thumbnails, oldest first.
	ListForVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Thumbnail, error)

	// CountForVideo counts a video's thumbnails.
	CountForVideo(ctx context.Context, videoID uuid.UUID) (int, error)

	// HasActive reports whether the video has an active thumbnail.
	HasActive(ctx context.Context, videoID uuid.UUID) (bool, error)

	// DeactivateAll clears the active flag on every thumbnail of a video.
	DeactivateAll(ctx context.Context, videoID uuid.UUID) error

	// Activate sets the active flag on one thumbnail.
	Activate(ctx context.Context, thumbnailID uuid.UUID) error

	// Delete removes a thumbnail row.
	Delete(ctx context.Context, thumbnailID uuid.UUID) error
}

type thumbnailRepository struct {
	q db.DBTX
}

// NewThumbnailRepository creates a new ThumbnailRepository.
func NewThumbnailRepository(q db.DBTX) ThumbnailRepository {
	return &thumbnailRepository{q: q}
}

func (r *thumbnailRepository) Create(ctx context.Context, thumbnail *models.Thumbnail) error {
	query := `
		INSERT INTO thumbnails (thumbnail_id, photo_id, video_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query,
		thumbnail.ID,
		thumbnail.PhotoID,
		thumbnail.VideoID,
		thumbnail.IsActive,
		thumbnail.CreatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create thumbnail")
	}

	return nil
}

func (r *thumbnailRepository) GetByID(ctx context.Context, thumbnailID uuid.UUID) (*models.Thumbnail, error) {
	query := `
		SELECT t.thumbnail_id, t.photo_id, t.video_id, p.path, t.is_active, t.created_at
		FROM thumbnails t
		JOIN photo p ON p.photo_id = t.photo_id
		WHERE t.thumbnail_id = $1
	`

	thumbnail, err := scanThumbnail(r.q.QueryRow(ctx, query, thumbnailID))
	if err != nil {
		return nil, db.WrapError(err, "get thumbnail by id")
	}

	return thumbnail, nil
}

func (r *thumbnailRepository) LockOwned(ctx context.Context, thumbnailID, uploader uuid.UUID) (*models.Thumbnail, error) {
	query := `
		SELECT t.thumbnail_id, t.photo_id, t.video_id, p.path, t.is_active, t.created_at
		FROM thumbnails t
		JOIN photo p ON p.photo_id = t.photo_id
		JOIN videos v ON v.video_id = t.video_id
		WHERE t.thumbnail_id = $1 AND v.uploader = $2
		FOR UPDATE OF t, v
	`

	thumbnail, err := scanThumbnail(r.q.QueryRow(ctx, query, thumbnailID, uploader))
	if err != nil {
		return nil, db.WrapError(err, "lock owned thumbnail")
	}

	return thumbnail, nil
}

func (r *thumbnailRepository) ListForVideo(ctx context.Context, videoID uuid.UUID) ([]*models.Thumbnail, error) {
	query := `
		SELECT t.thumbnail_id, t.photo_id, t.video_id, p.path, t.is_active, t.created_at
		FROM thumbnails t
		JOIN photo p ON p.photo_id = t.photo_id
		WHERE t.video_id = $1
		ORDER BY t.created_at ASC
	`

	rows, err := r.q.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "list thumbnails")
	}
	defer rows.Close()

	thumbnails := []*models.Thumbnail{}
	for rows.Next() {
		thumbnail, err := scanThumbnail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thumbnail: %w", err)
		}
		thumbnails = append(thumbnails, thumbnail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thumbnails: %w", err)
	}

	return thumbnails, nil
}

func (r *thumbnailRepository) CountForVideo(ctx context.Context, videoID uuid.UUID) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM thumbnails WHERE video_id = $1`, videoID).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count thumbnails")
	}
	return count, nil
}

func (r *thumbnailRepository) HasActive(ctx context.Context, videoID uuid.UUID) (bool, error) {
	var active bool
	query := `SELECT EXISTS(SELECT 1 FROM thumbnails WHERE video_id = $1 AND is_active)`
	if err := r.q.QueryRow(ctx, query, videoID).Scan(&active); err != nil {
		return false, db.WrapError(err, "check active thumbnail")
	}
	return active, nil
}

func (r *thumbnailRepository) DeactivateAll(ctx context.Context, videoID uuid.UUID) error {
	query := `UPDATE thumbnails SET is_active = FALSE WHERE video_id = $1 AND is_active`

	if _, err := r.q.Exec(ctx, query, videoID); err != nil {
		return db.WrapError(err, "deactivate thumbnails")
	}

	return nil
}

func (r *thumbnailRepository) Activate(ctx context.Context, thumbnailID uuid.UUID) error {
	query := `UPDATE thumbnails SET is_active = TRUE WHERE thumbnail_id = $1`

	result, err := r.q.Exec(ctx, query, thumbnailID)
	if err != nil {
		return db.WrapError(err, "activate thumbnail")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("activate thumbnail: %w", db.ErrNotFound)
	}

	return nil
}

func (r *thumbnailRepository) Delete(ctx context.Context, thumbnailID uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM thumbnails WHERE thumbnail_id = $1`, thumbnailID)
	if err != nil {
		return db.WrapError(err, "delete thumbnail")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete thumbnail: %w", db.ErrNotFound)
	}

	return nil
}

func scanThumbnail(row pgx.Row) (*models.Thumbnail, error) {
	thumbnail := &models.Thumbnail{}
	err := row.Scan(
		&thumbnail.ID,
		&thumbnail.PhotoID,
		&thumbnail.VideoID,
		&thumbnail.Path,
		&thumbnail.IsActive,
		&thumbnail.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return thumbnail, nil
}
