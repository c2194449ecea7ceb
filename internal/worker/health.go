package worker

import (
	"sync"
	"time"
)

const (
	WorkerStatusHealthy = "healthy"
	WorkerStatusFailed  = "failed"
)

// WorkerHealth is the externally visible state of one worker. Failure
// details stay in the logs; the health surface only reports the verdict.
type WorkerHealth struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

// Status is the healthz payload: the worst worker state wins.
type Status struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Workers   map[string]WorkerHealth `json:"workers"`
}

// HealthTracker records per-worker health. Safe for concurrent use.
type HealthTracker struct {
	mu      sync.RWMutex
	workers map[string]WorkerHealth
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		workers: make(map[string]WorkerHealth),
	}
}

func (h *HealthTracker) MarkHealthy(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusHealthy,
		LastCheck: time.Now(),
	}
}

func (h *HealthTracker) MarkFailed(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusFailed,
		LastCheck: time.Now(),
	}
}

// IsHealthy reports whether every tracked worker is healthy.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// GetStatus snapshots all worker states for the healthz endpoint.
func (h *HealthTracker) GetStatus() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	workers := make(map[string]WorkerHealth, len(h.workers))
	for name, w := range h.workers {
		workers[name] = w
	}

	status := WorkerStatusHealthy
	if !h.isHealthyLocked() {
		status = WorkerStatusFailed
	}

	return Status{
		Status:    status,
		Timestamp: time.Now(),
		Workers:   workers,
	}
}

func (h *HealthTracker) isHealthyLocked() bool {
	for _, w := range h.workers {
		if w.Status != WorkerStatusHealthy {
			return false
		}
	}
	return true
}
