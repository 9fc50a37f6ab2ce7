package repository

import (
	"context"
	"fmt"

	"github.com/fairpipe/fairpipe-api/internal/db"
	"github.com/fairpipe/fairpipe-api/internal/db/models"

	"github.com/google/uuid"
)

// PhotoRepository defines operations on photo and profile_picture rows.
type PhotoRepository interface {
	// Create inserts a photo row.
	Create(ctx context.Context, photo *models.Photo) error

	// Delete removes a photo row.
	Delete(ctx context.Context, photoID uuid.UUID) error

	// DeleteForVideo removes the photos of every thumbnail of a video, and
	// with them the thumbnails. It returns the number of photos removed.
	DeleteForVideo(ctx context.Context, videoID uuid.UUID) (int64, error)

	// CreateProfilePicture inserts a profile_picture row for an existing photo.
	CreateProfilePicture(ctx context.Context, picture *models.ProfilePicture) error
}

type photoRepository struct {
	q db.DBTX
}

// NewPhotoRepository creates a new PhotoRepository.
func NewPhotoRepository(q db.DBTX) PhotoRepository {
	return &photoRepository{q: q}
}

func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `INSERT INTO photo (photo_id, path, created_at) VALUES ($1, $2, $3)`

	if _, err := r.q.Exec(ctx, query, photo.ID, photo.Path, photo.CreatedAt); err != nil {
		return db.WrapError(err, "create photo")
	}

	return nil
}

func (r *photoRepository) Delete(ctx context.Context, photoID uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM photo WHERE photo_id = $1`, photoID)
	if err != nil {
		return db.WrapError(err, "delete photo")
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete photo: %w", db.ErrNotFound)
	}

	return nil
}

func (r *photoRepository) DeleteForVideo(ctx context.Context, videoID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM photo
		WHERE photo_id IN (SELECT photo_id FROM thumbnails WHERE video_id = $1)
	`

	result, err := r.q.Exec(ctx, query, videoID)
	if err != nil {
		return 0, db.WrapError(err, "delete video photos")
	}

	return result.RowsAffected(), nil
}

func (r *photoRepository) CreateProfilePicture(ctx context.Context, picture *models.ProfilePicture) error {
	query := `INSERT INTO profile_picture (profile_picture_id, photo_id, created_at) VALUES ($1, $2, $3)`

	if _, err := r.q.Exec(ctx, query, picture.ID, picture.PhotoID, picture.CreatedAt); err != nil {
		return db.WrapError(err, "create profile picture")
	}

	return nil
}
