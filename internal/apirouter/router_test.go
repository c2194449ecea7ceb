package apirouter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/apirouter"
	"github.com/webhookhub/webhookhub/internal/ingest"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
	"github.com/webhookhub/webhookhub/internal/telemetry"
	"github.com/webhookhub/webhookhub/internal/util/testutil"
	"github.com/webhookhub/webhookhub/internal/worker"
)

const baseAPIPath = "/api/v1"

func init() {
	gin.SetMode(gin.TestMode)
}

// apiTest wires a router against the in-memory store so handler tests run
// the same code paths as production requests, minus the network.
type apiTest struct {
	t         *testing.T
	router    http.Handler
	store     *memoryStore
	publisher *fakeJobPublisher
	tracker   *worker.HealthTracker
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()

	logger := testutil.CreateTestLogger(t)
	entityStore := newMemoryStore()
	publisher := &fakeJobPublisher{}
	tracker := worker.NewHealthTracker()

	router := apirouter.NewRouter(
		apirouter.RouterConfig{ServiceName: "webhookhub-test"},
		logger,
		ingest.NewService(logger, entityStore, publisher, 5),
		entityStore,
		tracker,
		&telemetry.NoopTelemetry{},
	)

	return &apiTest{
		t:         t,
		router:    router,
		store:     entityStore,
		publisher: publisher,
		tracker:   tracker,
	}
}

func (h *apiTest) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *apiTest) jsonReq(method, path string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(testutil.MustMarshalJSON(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (h *apiTest) rawReq(method, path string, body []byte, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	h := newAPITest(t)
	resp := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPI_Healthz(t *testing.T) {
	t.Parallel()

	t.Run("healthy workers return 200", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		h.tracker.MarkHealthy("delivery-consumer")
		h.tracker.MarkHealthy("http-server")

		resp := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, "healthy", body["status"])
		workers, ok := body["workers"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, workers, 2)
	})

	t.Run("one failed worker flips the verdict to 503", func(t *testing.T) {
		t.Parallel()

		h := newAPITest(t)
		h.tracker.MarkHealthy("http-server")
		h.tracker.MarkFailed("delivery-consumer")

		resp := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, resp.Code)

		body := decodeJSON(t, resp)
		assert.Equal(t, "failed", body["status"])
	})
}

// fakeJobPublisher records delivery jobs handed to the queue.
type fakeJobPublisher struct {
	mu        sync.Mutex
	err       error
	published []models.DeliveryJob
}

func (p *fakeJobPublisher) Publish(_ context.Context, job models.DeliveryJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, job)
	return nil
}

func (p *fakeJobPublisher) jobs() []models.DeliveryJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.published)
}

// memoryStore is a full in-memory store.Store. Handler tests exercise real
// CRUD round-trips against it; failErr forces the infrastructure-failure
// paths.
type memoryStore struct {
	mu sync.Mutex

	sources      []*models.Source
	destinations []*models.Destination
	events       []*models.Event
	deliveries   []*models.Delivery

	failErr error

	lastListEvents     *store.ListEventsRequest
	lastListDeliveries *store.ListDeliveriesRequest
	listNext           string
	listPrev           string

	committed  bool
	rolledBack bool
}

var _ store.Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func cloneSource(s *models.Source) *models.Source {
	c := *s
	return &c
}

func cloneDestination(d *models.Destination) *models.Destination {
	c := *d
	c.Rules = slices.Clone(d.Rules)
	return &c
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.Payload = slices.Clone(e.Payload)
	return &c
}

func cloneDelivery(d *models.Delivery) *models.Delivery {
	c := *d
	return &c
}

func (s *memoryStore) CreateSource(_ context.Context, source *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, existing := range s.sources {
		if existing.Name == source.Name {
			return store.ErrDuplicateName
		}
	}
	s.sources = append(s.sources, cloneSource(source))
	return nil
}

func (s *memoryStore) RetrieveSource(_ context.Context, id string) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, source := range s.sources {
		if source.ID == id {
			return cloneSource(source), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) RetrieveSourceByName(_ context.Context, name string) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, source := range s.sources {
		if source.Name == name {
			return cloneSource(source), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) ListSources(_ context.Context) ([]*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]*models.Source, len(s.sources))
	for i, source := range s.sources {
		out[i] = cloneSource(source)
	}
	return out, nil
}

func (s *memoryStore) UpdateSource(_ context.Context, source *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, existing := range s.sources {
		if existing.ID != source.ID && existing.Name == source.Name {
			return store.ErrDuplicateName
		}
	}
	for i, existing := range s.sources {
		if existing.ID == source.ID {
			s.sources[i] = cloneSource(source)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) DeleteSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for i, source := range s.sources {
		if source.ID == id {
			s.sources = slices.Delete(s.sources, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) CreateDestination(_ context.Context, destination *models.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, existing := range s.destinations {
		if existing.Name == destination.Name {
			return store.ErrDuplicateName
		}
	}
	s.destinations = append(s.destinations, cloneDestination(destination))
	return nil
}

func (s *memoryStore) RetrieveDestination(_ context.Context, id string) (*models.Destination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, destination := range s.destinations {
		if destination.ID == id {
			return cloneDestination(destination), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) ListDestinations(_ context.Context) ([]*models.Destination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]*models.Destination, len(s.destinations))
	for i, destination := range s.destinations {
		out[i] = cloneDestination(destination)
	}
	return out, nil
}

func (s *memoryStore) UpdateDestination(_ context.Context, destination *models.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, existing := range s.destinations {
		if existing.ID != destination.ID && existing.Name == destination.Name {
			return store.ErrDuplicateName
		}
	}
	for i, existing := range s.destinations {
		if existing.ID == destination.ID {
			updated := cloneDestination(destination)
			if destination.Rules == nil {
				updated.Rules = slices.Clone(existing.Rules)
			}
			s.destinations[i] = updated
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) DeleteDestination(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for i, destination := range s.destinations {
		if destination.ID == id {
			s.destinations = slices.Delete(s.destinations, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) ListActiveMatching(_ context.Context, sourceName, eventType string) ([]*models.Destination, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []*models.Destination
	for _, destination := range s.destinations {
		if !destination.Active {
			continue
		}
		for _, rule := range destination.Rules {
			if rule.SourceName == sourceName && rule.EventType == eventType {
				out = append(out, cloneDestination(destination))
				break
			}
		}
	}
	return out, nil
}

func (s *memoryStore) InsertEvent(_ context.Context, event *models.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	for _, existing := range s.events {
		if existing.SourceName == event.SourceName && existing.IdempotencyKey == event.IdempotencyKey {
			return false, nil
		}
	}
	s.events = append(s.events, cloneEvent(event))
	return true, nil
}

func (s *memoryStore) RetrieveEvent(_ context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, event := range s.events {
		if event.ID == id {
			return cloneEvent(event), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) RetrieveEventByIdempotencyKey(_ context.Context, sourceName, idempotencyKey string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, event := range s.events {
		if event.SourceName == sourceName && event.IdempotencyKey == idempotencyKey {
			return cloneEvent(event), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) ListEvents(_ context.Context, req store.ListEventsRequest) (store.ListEventsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return store.ListEventsResponse{}, s.failErr
	}
	s.lastListEvents = &req
	var out []*models.Event
	for _, event := range s.events {
		if req.SourceName != "" && event.SourceName != req.SourceName {
			continue
		}
		if req.EventType != "" && event.EventType != req.EventType {
			continue
		}
		out = append(out, cloneEvent(event))
	}
	return store.ListEventsResponse{Data: out, Next: s.listNext, Prev: s.listPrev}, nil
}

func (s *memoryStore) InsertPendingDeliveries(_ context.Context, deliveries []models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, delivery := range deliveries {
		s.deliveries = append(s.deliveries, cloneDelivery(&delivery))
	}
	return nil
}

func (s *memoryStore) RetrieveDelivery(_ context.Context, id string) (*models.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, delivery := range s.deliveries {
		if delivery.ID == id {
			return cloneDelivery(delivery), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memoryStore) ListDeliveries(_ context.Context, req store.ListDeliveriesRequest) (store.ListDeliveriesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return store.ListDeliveriesResponse{}, s.failErr
	}
	s.lastListDeliveries = &req
	var out []*models.Delivery
	for _, delivery := range s.deliveries {
		if req.EventID != "" && delivery.EventID != req.EventID {
			continue
		}
		if req.DestinationID != "" && delivery.DestinationID != req.DestinationID {
			continue
		}
		if req.Status != "" && delivery.Status != req.Status {
			continue
		}
		out = append(out, cloneDelivery(delivery))
	}
	return store.ListDeliveriesResponse{Data: out, Next: s.listNext, Prev: s.listPrev}, nil
}

func (s *memoryStore) MarkDelivered(_ context.Context, id string, attempts int, deliveredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, delivery := range s.deliveries {
		if delivery.ID == id {
			delivery.Status = models.DeliveryStatusDelivered
			delivery.Attempts = attempts
			delivery.DeliveredAt = &deliveredAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) MarkFailed(_ context.Context, id string, status models.DeliveryStatus, attempts int, lastError string, lastAttemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, delivery := range s.deliveries {
		if delivery.ID == id {
			delivery.Status = status
			delivery.Attempts = attempts
			delivery.LastError = &lastError
			delivery.LastAttemptAt = &lastAttemptAt
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memoryStore) IngestTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.rolledBack = true
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.committed = true
	s.mu.Unlock()
	return nil
}
