package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNoWorkers = errors.New("no workers registered")

// Logger is the slice of zap the supervisor needs. *logging.Logger
// satisfies it.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// WorkerSupervisor runs a set of workers and tracks their health. A failed
// worker does not bring the others down: the HTTP server keeps answering
// healthz so an orchestrator can see the failure and restart the process.
type WorkerSupervisor struct {
	workers         map[string]Worker
	health          *HealthTracker
	logger          Logger
	shutdownTimeout time.Duration
}

type SupervisorOption func(*WorkerSupervisor)

// WithShutdownTimeout caps how long Run waits for workers to drain after
// cancellation. Zero waits indefinitely.
func WithShutdownTimeout(timeout time.Duration) SupervisorOption {
	return func(s *WorkerSupervisor) {
		s.shutdownTimeout = timeout
	}
}

func NewWorkerSupervisor(logger Logger, opts ...SupervisorOption) *WorkerSupervisor {
	s := &WorkerSupervisor{
		workers: make(map[string]Worker),
		health:  NewHealthTracker(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a worker. Names must be unique; registering twice is a
// programming error.
func (s *WorkerSupervisor) Register(w Worker) {
	if _, exists := s.workers[w.Name()]; exists {
		panic(fmt.Sprintf("worker %s already registered", w.Name()))
	}
	s.workers[w.Name()] = w
	s.logger.Debug("worker registered", zap.String("worker", w.Name()))
}

func (s *WorkerSupervisor) GetHealthTracker() *HealthTracker {
	return s.health
}

// Run starts every registered worker and blocks until the context is
// cancelled or all workers have exited on their own. Cancellation drains
// workers within the shutdown timeout and returns ctx.Err(); every worker
// exiting by itself is a failure mode and returns an error.
func (s *WorkerSupervisor) Run(ctx context.Context) error {
	if len(s.workers) == 0 {
		s.logger.Warn("no workers registered")
		return ErrNoWorkers
	}

	s.logger.Info("starting workers", zap.Int("count", len(s.workers)))

	var wg sync.WaitGroup
	for name, w := range s.workers {
		wg.Add(1)
		s.health.MarkHealthy(name)
		go func(name string, w Worker) {
			defer wg.Done()
			s.logger.Info("worker starting", zap.String("worker", name))

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("worker failed", zap.String("worker", name), zap.Error(err))
				s.health.MarkFailed(name)
				return
			}
			s.logger.Info("worker stopped", zap.String("worker", name))
		}(name, w)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down workers")
		if err := s.wait(&wg); err != nil {
			return err
		}
		return ctx.Err()
	case <-waitChan(&wg):
		// Long-running workers have no business finishing on a live
		// context; mark the survivors failed so healthz flips.
		status := s.health.GetStatus()
		for name := range s.workers {
			if status.Workers[name].Status != WorkerStatusFailed {
				s.health.MarkFailed(name)
			}
		}
		s.logger.Warn("all workers have exited unexpectedly")
		return errors.New("all workers have exited unexpectedly")
	}
}

func (s *WorkerSupervisor) wait(wg *sync.WaitGroup) error {
	if s.shutdownTimeout <= 0 {
		wg.Wait()
		return nil
	}

	select {
	case <-waitChan(wg):
		s.logger.Info("all workers shut down")
		return nil
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("shutdown timeout exceeded, some workers may still be running",
			zap.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded (%v)", s.shutdownTimeout)
	}
}

func waitChan(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
