// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"strings"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/auth"
	"github.com/fairpipe/fairpipe-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "

	// ContextUserID holds the uuid.UUID of the signed-in user.
	ContextUserID = "user_id"
	// ContextSession holds the verified *auth.Session.
	ContextSession = "session"
)

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Session, error)
}

// SessionAuth authenticates requests from the session cookie or, failing
// that, an Authorization: Bearer header.
type SessionAuth struct {
	verifier   TokenVerifier
	cookieName string
}

// NewSessionAuth creates a new session authentication middleware.
func NewSessionAuth(verifier TokenVerifier, cookieName string) *SessionAuth {
	return &SessionAuth{
		verifier:   verifier,
		cookieName: cookieName,
	}
}

// RequireAuth rejects requests without a valid session with 401.
func (a *SessionAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := a.authenticate(c)
		if err != nil {
			logger.Log.Debug("unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("client_ip", c.ClientIP()),
			)
			abortWithError(c, apperr.Unauthorized("authentication required"))
			return
		}

		setSession(c, session)
		c.Next()
	}
}

// OptionalAuth attaches the session when one is present and valid, and
// lets anonymous requests through otherwise.
func (a *SessionAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session, err := a.authenticate(c); err == nil {
			setSession(c, session)
		}
		c.Next()
	}
}

func (a *SessionAuth) authenticate(c *gin.Context) (*auth.Session, error) {
	token := a.extractToken(c)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return a.verifier.Verify(token)
}

// extractToken checks the session cookie first, then the bearer header.
func (a *SessionAuth) extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(a.cookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	}

	return ""
}

func setSession(c *gin.Context, session *auth.Session) {
	c.Set(ContextSession, session)
	c.Set(ContextUserID, session.UserID)
}

// UserID returns the signed-in user, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortWithError(c *gin.Context, err *apperr.Error) {
	status := apperr.HTTPStatus(err.Kind)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Kind.String(),
		"message": err.Message,
		"status":  status,
	})
}
