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

// TrendingService ranks videos and serves the cached ranking.
type TrendingService interface {
	Refresh(ctx context.Context) ([]uuid.UUID, error)
	Page(ctx context.Context, limit, offset int) (*service.TrendingPage, error)
	Ranked(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error)
}

// SortingHandler handles the trending endpoints.
type SortingHandler struct {
	trending TrendingService
}

// NewSortingHandler creates a new SortingHandler.
func NewSortingHandler(trending TrendingService) *SortingHandler {
	return &SortingHandler{trending: trending}
}

// Refresh handles GET /sorting/upload by re-ranking synchronously.
func (h *SortingHandler) Refresh(c *gin.Context) {
	ids, err := h.trending.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(ids)})
}

// Cached handles GET /sorting/get.
func (h *SortingHandler) Cached(c *gin.Context) {
	var query validation.PageQuery
	if !bind(c, &query) {
		return
	}

	page, err := h.trending.Page(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Ranked handles GET /sorting, reading the un-jittered order from the database.
func (h *SortingHandler) Ranked(c *gin.Context) {
	var query validation.PageQuery
	if !bind(c, &query) {
		return
	}

	videos, err := h.trending.Ranked(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "videos": videos, "count": len(videos)})
}
