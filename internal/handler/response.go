// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/middleware"
	"github.com/fairpipe/fairpipe-api/internal/validation"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// respondError writes err as an ErrorResponse. Internal causes are logged,
// never sent.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}

	status := apperr.HTTPStatus(appErr.Kind)
	if appErr.Kind == apperr.KindInternal {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Error:   appErr.Kind.String(),
		Message: appErr.Message,
		Status:  status,
	})
}

// bind binds query and body fields into obj, reporting validation
// failures as bad requests.
func bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		if isTooLarge(err) {
			respondError(c, apperr.New(apperr.KindPayloadTooLarge, "request body too large"))
			return false
		}
		respondError(c, apperr.BadRequest(validation.Describe(err)))
		return false
	}
	return true
}

// currentUser returns the authenticated user. Routes using it sit behind
// RequireAuth, so a missing id is a wiring error.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		respondError(c, apperr.Unauthorized("authentication required"))
	}
	return id, ok
}

// limitBody caps the request body at limit plus room for the other form parts.
func limitBody(c *gin.Context, limit int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
}

// formFile returns the "file" part, rejecting it when it exceeds limit.
func formFile(c *gin.Context, limit int64) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respondError(c, apperr.New(apperr.KindPayloadTooLarge, "request body too large"))
			return nil, false
		}
		respondError(c, apperr.BadRequest("file is required"))
		return nil, false
	}
	if fh.Size > limit {
		respondError(c, apperr.New(apperr.KindPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", limit)))
		return nil, false
	}
	return fh, true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func contentType(fh *multipart.FileHeader) string {
	return fh.Header.Get("Content-Type")
}
