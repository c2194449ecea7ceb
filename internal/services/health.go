package services

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/worker"
)

// HealthHandler creates a health check handler that reports worker supervisor health
func HealthHandler(supervisor *worker.WorkerSupervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracker := supervisor.GetHealthTracker()
		status := tracker.GetStatus()
		if tracker.IsHealthy() {
			c.JSON(http.StatusOK, status)
		} else {
			c.JSON(http.StatusServiceUnavailable, status)
		}
	}
}

// NewBaseRouter creates a minimal router exposing only /healthz, for
// processes that run without the full API surface.
func NewBaseRouter(supervisor *worker.WorkerSupervisor, ginMode string) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(ginMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", HealthHandler(supervisor))

	return r
}
