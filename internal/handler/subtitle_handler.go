package handler

import (
	"context"
	"net/http"

	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubtitleService is the subtitle use-case layer.
type SubtitleService interface {
	Upload(ctx context.Context, userID uuid.UUID, rawVideoID string, in service.UploadSubtitleInput) (*service.SubtitleUpload, error)
	Get(ctx context.Context, rawVideoID string) (*service.SubtitleList, error)
	Delete(ctx context.Context, userID uuid.UUID, rawVideoID, short string) error
}

// SubtitleHandler handles subtitle endpoints.
type SubtitleHandler struct {
	subtitles       SubtitleService
	maxSubtitleSize int64
}

// NewSubtitleHandler creates a new SubtitleHandler.
func NewSubtitleHandler(subtitles SubtitleService, maxSubtitleSize int64) *SubtitleHandler {
	return &SubtitleHandler{subtitles: subtitles, maxSubtitleSize: maxSubtitleSize}
}

// Upload handles POST /subtitles/upload.
func (h *SubtitleHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limitBody(c, h.maxSubtitleSize)
	var form validation.SubtitleUploadForm
	if !bind(c, &form) {
		return
	}
	fh, ok := formFile(c, h.maxSubtitleSize)
	if !ok {
		return
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	result, err := h.subtitles.Upload(c.Request.Context(), userID, form.ID, service.UploadSubtitleInput{
		Language:      form.Language,
		LanguageShort: form.LanguageShort,
		FileName:      fh.Filename,
		ContentType:   contentType(fh),
		Size:          fh.Size,
		File:          file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"subtitle_id": result.SubtitleID,
		"filename":    result.Filename,
	})
}

// Get handles GET /subtitles/get?id=.
func (h *SubtitleHandler) Get(c *gin.Context) {
	var form validation.IDForm
	if !bind(c, &form) {
		return
	}

	list, err := h.subtitles.Get(c.Request.Context(), form.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Delete handles DELETE /subtitles/delete.
func (h *SubtitleHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.SubtitleDeleteForm
	if !bind(c, &form) {
		return
	}

	if err := h.subtitles.Delete(c.Request.Context(), userID, form.ID, form.Language); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
