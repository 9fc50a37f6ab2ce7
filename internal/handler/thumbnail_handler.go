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

// ThumbnailService is the thumbnail use-case layer.
type ThumbnailService interface {
	Upload(ctx context.Context, userID uuid.UUID, rawVideoID string, in service.UploadImageInput) (*models.Thumbnail, error)
	Get(ctx context.Context, rawID string) (*models.Thumbnail, error)
	List(ctx context.Context, rawVideoID string) ([]*models.Thumbnail, error)
	Activate(ctx context.Context, userID uuid.UUID, rawID string) error
	Delete(ctx context.Context, userID uuid.UUID, rawID string) error
}

// ThumbnailHandler handles thumbnail endpoints.
type ThumbnailHandler struct {
	thumbnails   ThumbnailService
	maxImageSize int64
}

// NewThumbnailHandler creates a new ThumbnailHandler.
func NewThumbnailHandler(thumbnails ThumbnailService, maxImageSize int64) *ThumbnailHandler {
	return &ThumbnailHandler{thumbnails: thumbnails, maxImageSize: maxImageSize}
}

// Upload handles POST /thumbnail/upload.
func (h *ThumbnailHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limitBody(c, h.maxImageSize)
	var form validation.IDForm
	if !bind(c, &form) {
		return
	}
	fh, ok := formFile(c, h.maxImageSize)
	if !ok {
		return
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	thumbnail, err := h.thumbnails.Upload(c.Request.Context(), userID, form.ID, service.UploadImageInput{
		FileName:    fh.Filename,
		ContentType: contentType(fh),
		Size:        fh.Size,
		File:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "thumbnail": thumbnail})
}

// Get handles GET /thumbnail/get?id=.
func (h *ThumbnailHandler) Get(c *gin.Context) {
	var form validation.IDForm
	if !bind(c, &form) {
		return
	}

	thumbnail, err := h.thumbnails.Get(c.Request.Context(), form.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, thumbnail)
}

// List handles GET /thumbnail/list?videoID=.
func (h *ThumbnailHandler) List(c *gin.Context) {
	var form validation.VideoIDForm
	if !bind(c, &form) {
		return
	}

	thumbnails, err := h.thumbnails.List(c.Request.Context(), form.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "thumbnails": thumbnails, "count": len(thumbnails)})
}

// Activate handles PATCH /thumbnail/activate?id=.
func (h *ThumbnailHandler) Activate(c *gin.Context) {
	h.mutate(c, h.thumbnails.Activate)
}

// Delete handles DELETE /thumbnail/delete?id=.
func (h *ThumbnailHandler) Delete(c *gin.Context) {
	h.mutate(c, h.thumbnails.Delete)
}

func (h *ThumbnailHandler) mutate(c *gin.Context, op func(ctx context.Context, userID uuid.UUID, rawID string) error) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.IDForm
	if !bind(c, &form) {
		return
	}

	if err := op(c.Request.Context(), userID, form.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
