package handler

import (
	"context"
	"net/http"

	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReactionService applies and reads like/dislike reactions.
type ReactionService interface {
	React(ctx context.Context, userID uuid.UUID, rawVideoID string, action models.ReactionAction) (*models.ReactionStatus, error)
	Status(ctx context.Context, userID uuid.UUID, rawVideoID string) (*models.ReactionStatus, error)
}

// ReactionHandler handles the like_dislike endpoints.
type ReactionHandler struct {
	reactions ReactionService
}

// NewReactionHandler creates a new ReactionHandler.
func NewReactionHandler(reactions ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

// Like handles POST /like_dislike/like.
func (h *ReactionHandler) Like(c *gin.Context) {
	h.react(c, models.ActionLike)
}

// Dislike handles POST /like_dislike/dislike.
func (h *ReactionHandler) Dislike(c *gin.Context) {
	h.react(c, models.ActionDislike)
}

func (h *ReactionHandler) react(c *gin.Context, action models.ReactionAction) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.VideoIDForm
	if !bind(c, &form) {
		return
	}

	status, err := h.reactions.React(c.Request.Context(), userID, form.VideoID, action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": status})
}

// Get handles GET /like_dislike/get?videoID=.
func (h *ReactionHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var form validation.VideoIDForm
	if !bind(c, &form) {
		return
	}

	status, err := h.reactions.Status(c.Request.Context(), userID, form.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": status})
}
