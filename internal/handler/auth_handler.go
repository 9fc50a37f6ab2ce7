package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
)

// AccountService creates accounts and signs users in.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*service.SessionResult, error)
	AnonymousLogin(ctx context.Context) (*service.AnonymousResult, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

// AuthHandler handles registration and sessions.
type AuthHandler struct {
	accounts AccountService
	cookie   CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookie: cookie}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var form validation.RegisterForm
	if !bind(c, &form) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:       form.Email,
		Username:    form.Username,
		Password:    form.Password,
		DisplayName: form.DisplayName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var form validation.LoginForm
	if !bind(c, &form) {
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": session.User, "token": session.Token})
}

// AnonymousLogin handles POST /auth/anonymLogin. The generated password is
// only ever returned here.
func (h *AuthHandler) AnonymousLogin(c *gin.Context) {
	result, err := h.accounts.AnonymousLogin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"user":     result.User,
		"username": result.User.Username,
		"email":    result.User.Email,
		"password": result.Password,
		"token":    result.Token,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}
