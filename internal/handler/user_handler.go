package handler

import (
	"context"
	"net/http"

	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/middleware"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProfileService reads and edits user profiles.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, displayName, bio *string) error
	PictureURL(ctx context.Context, userID uuid.UUID) (string, error)
	UploadPicture(ctx context.Context, userID uuid.UUID, in service.UploadImageInput) (string, error)
}

// UserHandler handles user profile endpoints.
type UserHandler struct {
	profiles     ProfileService
	maxImageSize int64
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(profiles ProfileService, maxImageSize int64) *UserHandler {
	return &UserHandler{profiles: profiles, maxImageSize: maxImageSize}
}

// Get handles GET /user/get. Without ?id= it returns the signed-in user.
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Update handles PATCH /user/update.
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.ProfileForm
	if !bind(c, &form) {
		return
	}

	if err := h.profiles.UpdateProfile(c.Request.Context(), userID, form.DisplayName, form.Bio); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPicture handles GET /user/picture/get.
func (h *UserHandler) GetPicture(c *gin.Context) {
	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	url, err := h.profiles.PictureURL(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "photo_url": url})
}

// UploadPicture handles POST /user/picture/upload.
func (h *UserHandler) UploadPicture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limitBody(c, h.maxImageSize)
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

	url, err := h.profiles.UploadPicture(c.Request.Context(), userID, service.UploadImageInput{
		FileName:    fh.Filename,
		ContentType: contentType(fh),
		Size:        fh.Size,
		File:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "photo_url": url})
}

// targetUser resolves ?id= or falls back to the signed-in user.
func (h *UserHandler) targetUser(c *gin.Context) (uuid.UUID, bool) {
	if raw := c.Query("id"); raw != "" {
		id, err := service.ParseID(raw, "user id")
		if err != nil {
			respondError(c, err)
			return uuid.Nil, false
		}
		return id, true
	}

	if id, ok := middleware.UserID(c); ok {
		return id, true
	}
	return currentUser(c)
}
