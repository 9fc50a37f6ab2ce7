package handler

import (
	"context"
	"net/http"

	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VideoService is the video use-case layer.
type VideoService interface {
	Upload(ctx context.Context, in service.UploadVideoInput) (uuid.UUID, error)
	Get(ctx context.Context, rawID string) (*models.VideoDetails, error)
	Update(ctx context.Context, userID uuid.UUID, rawID string, title, description *string) error
	Delete(ctx context.Context, userID uuid.UUID, rawID string) error
	List(ctx context.Context, rawUploader string, limit, offset int) ([]*models.Video, error)
}

// VideoHandler handles video endpoints.
type VideoHandler struct {
	videos       VideoService
	maxVideoSize int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos VideoService, maxVideoSize int64) *VideoHandler {
	return &VideoHandler{videos: videos, maxVideoSize: maxVideoSize}
}

// Upload handles POST /video/upload.
func (h *VideoHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limitBody(c, h.maxVideoSize)
	var form validation.VideoUploadForm
	if !bind(c, &form) {
		return
	}
	fh, ok := formFile(c, h.maxVideoSize)
	if !ok {
		return
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	id, err := h.videos.Upload(c.Request.Context(), service.UploadVideoInput{
		UploaderID:      userID,
		Title:           form.Title,
		Description:     form.Description,
		ManualSubtitles: form.Subtitles,
		FileName:        fh.Filename,
		ContentType:     contentType(fh),
		Size:            fh.Size,
		File:            file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// Get handles GET /video/get?id=.
func (h *VideoHandler) Get(c *gin.Context) {
	var form validation.IDForm
	if !bind(c, &form) {
		return
	}

	video, err := h.videos.Get(c.Request.Context(), form.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "video": video})
}

// Update handles PATCH /video/update.
func (h *VideoHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.VideoUpdateForm
	if !bind(c, &form) {
		return
	}

	if err := h.videos.Update(c.Request.Context(), userID, form.ID, form.Title, form.Description); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete handles DELETE /video/delete.
func (h *VideoHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.IDForm
	if !bind(c, &form) {
		return
	}

	if err := h.videos.Delete(c.Request.Context(), userID, form.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List handles GET /video/list.
func (h *VideoHandler) List(c *gin.Context) {
	var query validation.UploaderPageQuery
	if !bind(c, &query) {
		return
	}

	videos, err := h.videos.List(c.Request.Context(), query.Uploader, query.Limit, query.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"videos":  videos,
		"count":   len(videos),
		"limit":   query.Limit,
		"offset":  query.Offset,
	})
}
