package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is a stored image object.
type Photo struct {
	ID        uuid.UUID `db:"photo_id" json:"photo_id"`
	Path      string    `db:"path" json:"path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProfilePicture associates a Photo with a user.
type ProfilePicture struct {
	ID        uuid.UUID `db:"profile_picture_id" json:"profile_picture_id"`
	PhotoID   uuid.UUID `db:"photo_id" json:"photo_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Thumbnail associates a Photo with a Video. At most one per video is active.
type Thumbnail struct {
	ID        uuid.UUID `db:"thumbnail_id" json:"thumbnail_id"`
	PhotoID   uuid.UUID `db:"photo_id" json:"photo_id"`
	VideoID   uuid.UUID `db:"video_id" json:"video_id"`
	Path      string    `db:"path" json:"path"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
