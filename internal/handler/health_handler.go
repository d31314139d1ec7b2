package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/cms_api/internal/utils"
)

var startTime = time.Now()

// Pinger is a dependency that can report its own liveness.
type Pinger func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. Nil checks are reported as disabled.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	healthy := true
	deps := gin.H{}
	for name, ping := range h.checks {
		switch {
		case ping == nil:
			deps[name] = "disabled"
		case ping(ctx) != nil:
			deps[name] = "disconnected"
			healthy = false
		default:
			deps[name] = "connected"
		}
	}

	data := gin.H{
		"status":       "healthy",
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	}
	if !healthy {
		data["status"] = "degraded"
		utils.ErrorWithDetails(c, http.StatusServiceUnavailable, utils.CodeServiceUnavailable, "Service is degraded", data)
		return
	}
	utils.Success(c, http.StatusOK, "Service is healthy", data)
}
