package apirouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/webhookhub/webhookhub/internal/worker"
)

type HealthHandlers struct {
	tracker *worker.HealthTracker
}

func NewHealthHandlers(tracker *worker.HealthTracker) *HealthHandlers {
	return &HealthHandlers{tracker: tracker}
}

// Healthz handles GET /healthz
// 200 while every worker in the process is healthy, 503 as soon as one has
// failed. The body is the full per-worker breakdown either way.
func (h *HealthHandlers) Healthz(c *gin.Context) {
	status := h.tracker.GetStatus()
	code := http.StatusOK
	if status.Status != worker.WorkerStatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
