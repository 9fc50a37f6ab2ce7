package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Video is an uploaded video and its aggregate counters.
type Video struct {
	ID              uuid.UUID  `db:"video_id" json:"video_id"`
	Path            string     `db:"path" json:"path"`
	ObjectKey       string     `db:"object_key" json:"minio_path"`
	Duration        *int32     `db:"duration" json:"duration"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	IsAgeRestricted bool       `db:"is_age_restricted" json:"is_age_restricted"`
	Views           int64      `db:"views" json:"views"`
	Likes           int64      `db:"likes" json:"likes"`
	Dislikes        int64      `db:"dislikes" json:"dislikes"`
	Uploader        uuid.UUID  `db:"uploader" json:"uploader_id"`
	ThumbnailID     *uuid.UUID `db:"thumbnail_id" json:"thumbnail_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// NewVideo creates a Video with a fresh id whose playback path and object
// key are derived from that id and the upload's file extension.
func NewVideo(uploader uuid.UUID, title, description, ext string, duration *int32) *Video {
	id := uuid.New()
	now := time.Now()
	return &Video{
		ID:          id,
		Path:        PlaylistPath(id),
		ObjectKey:   fmt.Sprintf("%s/%s.%s", id, id, ext),
		Duration:    duration,
		Title:       title,
		Description: description,
		Uploader:    uploader,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PlaylistPath is the public HLS master playlist path of a video.
func PlaylistPath(id uuid.UUID) string {
	return fmt.Sprintf("/video/%s/master.m3u8", id)
}

// VideoDetails is a Video joined with its active thumbnail and uploader.
type VideoDetails struct {
	Video
	ThumbnailPath       *string `json:"thumbnail_path"`
	UploaderUsername    string  `json:"uploader_username"`
	UploaderDisplayName string  `json:"uploader_display_name"`
}

// RankedVideo is a video id with the score it was ranked by.
type RankedVideo struct {
	ID    uuid.UUID `json:"video_id"`
	Score float64   `json:"score"`
}
