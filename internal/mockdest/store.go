// Package mockdest is a mock destination endpoint for exercising the
// delivery pipeline. It records every webhook it receives and can be told
// to answer with fixed status codes or to fail a number of times before
// recovering, which is how the retry path gets tested end to end.
package mockdest

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ReceivedWebhook is one recorded POST.
type ReceivedWebhook struct {
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       json.RawMessage   `json:"body"`
	ReceivedAt time.Time         `json:"received_at"`
}

type RequestStore interface {
	Record(ctx context.Context, req ReceivedWebhook)
	List(ctx context.Context) []ReceivedWebhook
	Clear(ctx context.Context)

	// ShouldFail consumes one failure from key's budget, seeding the budget
	// with failures on first sight. It reports true until the budget is
	// spent, then false forever.
	ShouldFail(ctx context.Context, key string, failures int) bool
}

type requestStore struct {
	mu       sync.Mutex
	requests []ReceivedWebhook
	budgets  map[string]int
}

func NewRequestStore() RequestStore {
	return &requestStore{
		budgets: make(map[string]int),
	}
}

func (s *requestStore) Record(ctx context.Context, req ReceivedWebhook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *requestStore) List(ctx context.Context) []ReceivedWebhook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReceivedWebhook, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *requestStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	s.budgets = make(map[string]int)
}

func (s *requestStore) ShouldFail(ctx context.Context, key string, failures int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, ok := s.budgets[key]
	if !ok {
		remaining = failures
	}
	if remaining <= 0 {
		s.budgets[key] = 0
		return false
	}
	s.budgets[key] = remaining - 1
	return true
}
