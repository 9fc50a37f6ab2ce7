package handler

import (
	"github.com/fairpipe/fairpipe-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every route handler the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Video     *VideoHandler
	Thumbnail *ThumbnailHandler
	Subtitle  *SubtitleHandler
	Reaction  *ReactionHandler
	Sorting   *SortingHandler
	Health    *HealthHandler
}

// RouterConfig carries the router-level settings.
type RouterConfig struct {
	AllowOrigins      []string
	MultipartMemLimit int64
}

// NewRouter mounts every route on a new gin engine.
func NewRouter(cfg RouterConfig, sessions *middleware.SessionAuth, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowOrigins))
	if cfg.MultipartMemLimit > 0 {
		router.MaxMultipartMemory = cfg.MultipartMemLimit
	}

	requireAuth := sessions.RequireAuth()
	optionalAuth := sessions.OptionalAuth()

	health := router.Group("/health")
	{
		health.GET("/live", h.Health.LivenessProbe)
		health.GET("/ready", h.Health.ReadinessProbe)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/anonymLogin", h.Auth.AnonymousLogin)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	user := router.Group("/user")
	{
		user.GET("/get", optionalAuth, h.User.Get)
		user.PATCH("/update", requireAuth, h.User.Update)
		user.GET("/picture/get", optionalAuth, h.User.GetPicture)
		user.POST("/picture/upload", requireAuth, h.User.UploadPicture)
	}

	video := router.Group("/video")
	{
		video.POST("/upload", requireAuth, h.Video.Upload)
		video.GET("/get", h.Video.Get)
		video.GET("/list", h.Video.List)
		video.PATCH("/update", requireAuth, h.Video.Update)
		video.DELETE("/delete", requireAuth, h.Video.Delete)
	}

	thumbnail := router.Group("/thumbnail")
	{
		thumbnail.POST("/upload", requireAuth, h.Thumbnail.Upload)
		thumbnail.GET("/get", h.Thumbnail.Get)
		thumbnail.GET("/list", h.Thumbnail.List)
		thumbnail.PATCH("/activate", requireAuth, h.Thumbnail.Activate)
		thumbnail.DELETE("/delete", requireAuth, h.Thumbnail.Delete)
	}

	subtitles := router.Group("/subtitles")
	{
		subtitles.POST("/upload", requireAuth, h.Subtitle.Upload)
		subtitles.GET("/get", h.Subtitle.Get)
		subtitles.DELETE("/delete", requireAuth, h.Subtitle.Delete)
	}

	reactions := router.Group("/like_dislike", requireAuth)
	{
		reactions.POST("/like", h.Reaction.Like)
		reactions.POST("/dislike", h.Reaction.Dislike)
		reactions.GET("/get", h.Reaction.Get)
	}

	sorting := router.Group("/sorting")
	{
		sorting.GET("", h.Sorting.Ranked)
		sorting.GET("/get", h.Sorting.Cached)
		sorting.GET("/upload", h.Sorting.Refresh)
	}

	return router
}
