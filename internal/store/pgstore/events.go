package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/webhookhub/webhookhub/internal/cursor"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/pagination"
	"github.com/webhookhub/webhookhub/internal/store"
)

var eventCursor = cursor.Codec{Resource: cursorResourceEvent, Version: cursorVersion}

func (s *PGStore) InsertEvent(ctx context.Context, event *models.Event) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO events (id, source_name, event_type, idempotency_key, payload_json, correlation_id, received_at, cursor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_name, idempotency_key) DO NOTHING
	`, event.ID, event.SourceName, event.EventType, event.IdempotencyKey,
		[]byte(event.Payload), nullable(event.CorrelationID), event.ReceivedAt,
		makeCursorID(event.ReceivedAt, event.ID))
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) RetrieveEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.retrieveEvent(ctx, "id = $1", id)
}

func (s *PGStore) RetrieveEventByIdempotencyKey(ctx context.Context, sourceName, idempotencyKey string) (*models.Event, error) {
	return s.retrieveEvent(ctx, "source_name = $1 AND idempotency_key = $2", sourceName, idempotencyKey)
}

func (s *PGStore) retrieveEvent(ctx context.Context, where string, args ...any) (*models.Event, error) {
	var (
		event         models.Event
		payload       []byte
		correlationID *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, source_name, event_type, idempotency_key, payload_json, correlation_id, received_at
		FROM events
		WHERE `+where,
		args...,
	).Scan(&event.ID, &event.SourceName, &event.EventType, &event.IdempotencyKey,
		&payload, &correlationID, &event.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query event: %w", err)
	}
	event.Payload = payload
	if correlationID != nil {
		event.CorrelationID = *correlationID
	}
	return &event, nil
}

// eventWithCursorID carries the row's list position alongside the event.
type eventWithCursorID struct {
	*models.Event
	CursorID string
}

func (s *PGStore) ListEvents(ctx context.Context, req store.ListEventsRequest) (store.ListEventsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	res, err := pagination.Run(ctx, pagination.Config[eventWithCursorID]{
		Limit: limit,
		Order: "desc",
		Next:  req.Next,
		Prev:  req.Prev,
		Fetch: func(ctx context.Context, q pagination.QueryInput) ([]eventWithCursorID, error) {
			query, args := buildEventQuery(req, q)
			rows, err := s.db.Query(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("query events: %w", err)
			}
			defer rows.Close()
			return scanEvents(rows)
		},
		Codec: pagination.Codec[eventWithCursorID]{
			Encode: func(e eventWithCursorID) string { return eventCursor.Encode(e.CursorID) },
			Decode: eventCursor.Decode,
		},
	})
	if err != nil {
		return store.ListEventsResponse{}, err
	}

	data := make([]*models.Event, len(res.Items))
	for i, item := range res.Items {
		data[i] = item.Event
	}
	return store.ListEventsResponse{Data: data, Next: res.Next, Prev: res.Prev}, nil
}

func buildEventQuery(req store.ListEventsRequest, q pagination.QueryInput) (string, []any) {
	cursorCondition := fmt.Sprintf("AND ($3::text = '' OR cursor_id %s $3::text)", q.Compare)
	orderByClause := fmt.Sprintf("cursor_id %s", strings.ToUpper(q.SortDir))

	query := fmt.Sprintf(`
		SELECT id, source_name, event_type, idempotency_key, payload_json, correlation_id, received_at, cursor_id
		FROM events
		WHERE ($1::text = '' OR source_name = $1)
		AND ($2::text = '' OR event_type = $2)
		%s
		ORDER BY %s
		LIMIT $4
	`, cursorCondition, orderByClause)

	args := []any{
		req.SourceName, // $1
		req.EventType,  // $2
		q.CursorPos,    // $3
		q.Limit,        // $4
	}
	return query, args
}

func scanEvents(rows pgx.Rows) ([]eventWithCursorID, error) {
	var results []eventWithCursorID
	for rows.Next() {
		var (
			event         models.Event
			payload       []byte
			correlationID *string
			cursorID      string
		)
		if err := rows.Scan(&event.ID, &event.SourceName, &event.EventType, &event.IdempotencyKey,
			&payload, &correlationID, &event.ReceivedAt, &cursorID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Payload = payload
		if correlationID != nil {
			event.CorrelationID = *correlationID
		}
		results = append(results, eventWithCursorID{Event: &event, CursorID: cursorID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
