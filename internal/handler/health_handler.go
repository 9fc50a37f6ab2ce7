package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency that can be probed over the network.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueHealth reports whether the job publisher holds a usable channel.
type QueueHealth interface {
	IsHealthy() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	database Pinger
	cache    Pinger
	queue    QueueHealth
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(database, cache Pinger, queue QueueHealth) *HealthHandler {
	return &HealthHandler{
		database: database,
		cache:    cache,
		queue:    queue,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	body := gin.H{"time": time.Now()}
	up := true

	check := func(name string, healthy bool) {
		if healthy {
			body[name] = "healthy"
			return
		}
		body[name] = "unhealthy"
		up = false
	}

	check("database", h.database != nil && h.database.Ping(ctx) == nil)
	check("redis", h.cache != nil && h.cache.Ping(ctx) == nil)
	check("rabbitmq", h.queue != nil && h.queue.IsHealthy())

	status := http.StatusOK
	body["status"] = "UP"
	if !up {
		status = http.StatusServiceUnavailable
		body["status"] = "DOWN"
	}

	c.JSON(status, body)
}
