// Package store defines the persistence interfaces for the relay's system of
// record. The Postgres implementation lives in store/pgstore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/webhookhub/webhookhub/internal/models"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a source or destination name is taken.
	ErrDuplicateName = errors.New("name already exists")

	// ErrDuplicateEvent aborts an ingest transaction when the event's
	// (source, idempotency key) pair already exists.
	ErrDuplicateEvent = errors.New("duplicate event")
)

type SourceStore interface {
	CreateSource(ctx context.Context, source *models.Source) error
	// RetrieveSource loads by ID. The HMAC secret is populated; callers
	// decide whether it crosses the API boundary (it never does).
	RetrieveSource(ctx context.Context, id string) (*models.Source, error)
	// RetrieveSourceByName is the ingest-path lookup and the only read whose
	// secret is consumed, for signature verification.
	RetrieveSourceByName(ctx context.Context, name string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	UpdateSource(ctx context.Context, source *models.Source) error
	DeleteSource(ctx context.Context, id string) error
}

type DestinationStore interface {
	// CreateDestination persists the destination and its rules in one
	// transaction; a destination is never visible without rules.
	CreateDestination(ctx context.Context, destination *models.Destination) error
	RetrieveDestination(ctx context.Context, id string) (*models.Destination, error)
	ListDestinations(ctx context.Context) ([]*models.Destination, error)
	// UpdateDestination replaces scalar fields and, when Rules is non-nil,
	// the full rule set.
	UpdateDestination(ctx context.Context, destination *models.Destination) error
	DeleteDestination(ctx context.Context, id string) error
	// ListActiveMatching is the fan-out query: active destinations holding a
	// rule exactly matching (sourceName, eventType).
	ListActiveMatching(ctx context.Context, sourceName, eventType string) ([]*models.Destination, error)
}

type EventStore interface {
	// InsertEvent inserts with ON CONFLICT DO NOTHING on the idempotency
	// constraint and reports whether a row was actually written.
	InsertEvent(ctx context.Context, event *models.Event) (inserted bool, err error)
	RetrieveEvent(ctx context.Context, id string) (*models.Event, error)
	// RetrieveEventByIdempotencyKey resolves the surviving row on the
	// duplicate ingest path.
	RetrieveEventByIdempotencyKey(ctx context.Context, sourceName, idempotencyKey string) (*models.Event, error)
	ListEvents(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
}

type DeliveryStore interface {
	// InsertPendingDeliveries batch-inserts the fan-out rows.
	InsertPendingDeliveries(ctx context.Context, deliveries []models.Delivery) error
	RetrieveDelivery(ctx context.Context, id string) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, req ListDeliveriesRequest) (ListDeliveriesResponse, error)
	// MarkDelivered finalizes a successful attempt. Attempts is the attempt
	// number of the job that produced the 2xx, not an increment.
	MarkDelivered(ctx context.Context, id string, attempts int, deliveredAt time.Time) error
	// MarkFailed records a failed attempt and its resulting status
	// (RETRYING or DEAD).
	MarkFailed(ctx context.Context, id string, status models.DeliveryStatus, attempts int, lastError string, lastAttemptAt time.Time) error
}

// Store is the full system-of-record surface.
type Store interface {
	SourceStore
	DestinationStore
	EventStore
	DeliveryStore

	// IngestTx runs fn inside a REPEATABLE READ transaction. The Store
	// passed to fn shares that transaction; returning an error rolls back.
	IngestTx(ctx context.Context, fn func(tx Store) error) error
}

type ListEventsRequest struct {
	Next  string
	Prev  string
	Limit int
	// Optional filters, exact match.
	SourceName string
	EventType  string
}

type ListEventsResponse struct {
	Data []*models.Event
	Next string
	Prev string
}

type ListDeliveriesRequest struct {
	Next  string
	Prev  string
	Limit int
	// Optional filters, exact match.
	EventID       string
	DestinationID string
	Status        models.DeliveryStatus
}

type ListDeliveriesResponse struct {
	Data []*models.Delivery
	Next string
	Prev string
}
