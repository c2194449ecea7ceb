package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/webhookhub/webhookhub/internal/cursor"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/pagination"
	"github.com/webhookhub/webhookhub/internal/store"
)

var deliveryCursor = cursor.Codec{Resource: cursorResourceDelivery, Version: cursorVersion}

func (s *PGStore) InsertPendingDeliveries(ctx context.Context, deliveries []models.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, delivery := range deliveries {
		batch.Queue(`
			INSERT INTO deliveries (id, event_id, destination_id, status, attempts, max_attempts, created_at, cursor_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, delivery.ID, delivery.EventID, delivery.DestinationID, delivery.Status,
			delivery.Attempts, delivery.MaxAttempts, delivery.CreatedAt,
			makeCursorID(delivery.CreatedAt, delivery.ID))
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()
	for range deliveries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert delivery: %w", err)
		}
	}
	return results.Close()
}

func (s *PGStore) RetrieveDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.QueryRow(ctx, `
		SELECT id, event_id, destination_id, status, attempts, max_attempts, last_error, last_attempt_at, delivered_at, created_at
		FROM deliveries
		WHERE id = $1
	`, id).Scan(&delivery.ID, &delivery.EventID, &delivery.DestinationID, &delivery.Status,
		&delivery.Attempts, &delivery.MaxAttempts, &delivery.LastError,
		&delivery.LastAttemptAt, &delivery.DeliveredAt, &delivery.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query delivery: %w", err)
	}
	return &delivery, nil
}

// deliveryWithCursorID carries the row's list position alongside the delivery.
type deliveryWithCursorID struct {
	*models.Delivery
	CursorID string
}

func (s *PGStore) ListDeliveries(ctx context.Context, req store.ListDeliveriesRequest) (store.ListDeliveriesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	res, err := pagination.Run(ctx, pagination.Config[deliveryWithCursorID]{
		Limit: limit,
		Order: "desc",
		Next:  req.Next,
		Prev:  req.Prev,
		Fetch: func(ctx context.Context, q pagination.QueryInput) ([]deliveryWithCursorID, error) {
			query, args := buildDeliveryQuery(req, q)
			rows, err := s.db.Query(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("query deliveries: %w", err)
			}
			defer rows.Close()
			return scanDeliveries(rows)
		},
		Codec: pagination.Codec[deliveryWithCursorID]{
			Encode: func(d deliveryWithCursorID) string { return deliveryCursor.Encode(d.CursorID) },
			Decode: deliveryCursor.Decode,
		},
	})
	if err != nil {
		return store.ListDeliveriesResponse{}, err
	}

	data := make([]*models.Delivery, len(res.Items))
	for i, item := range res.Items {
		data[i] = item.Delivery
	}
	return store.ListDeliveriesResponse{Data: data, Next: res.Next, Prev: res.Prev}, nil
}

func buildDeliveryQuery(req store.ListDeliveriesRequest, q pagination.QueryInput) (string, []any) {
	cursorCondition := fmt.Sprintf("AND ($4::text = '' OR cursor_id %s $4::text)", q.Compare)
	orderByClause := fmt.Sprintf("cursor_id %s", strings.ToUpper(q.SortDir))

	query := fmt.Sprintf(`
		SELECT id, event_id, destination_id, status, attempts, max_attempts, last_error, last_attempt_at, delivered_at, created_at, cursor_id
		FROM deliveries
		WHERE ($1::text = '' OR event_id = $1)
		AND ($2::text = '' OR destination_id = $2)
		AND ($3::text = '' OR status = $3)
		%s
		ORDER BY %s
		LIMIT $5
	`, cursorCondition, orderByClause)

	args := []any{
		req.EventID,        // $1
		req.DestinationID,  // $2
		string(req.Status), // $3
		q.CursorPos,        // $4
		q.Limit,            // $5
	}
	return query, args
}

func scanDeliveries(rows pgx.Rows) ([]deliveryWithCursorID, error) {
	var results []deliveryWithCursorID
	for rows.Next() {
		var (
			delivery models.Delivery
			cursorID string
		)
		if err := rows.Scan(&delivery.ID, &delivery.EventID, &delivery.DestinationID, &delivery.Status,
			&delivery.Attempts, &delivery.MaxAttempts, &delivery.LastError,
			&delivery.LastAttemptAt, &delivery.DeliveredAt, &delivery.CreatedAt, &cursorID); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		results = append(results, deliveryWithCursorID{Delivery: &delivery, CursorID: cursorID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// MarkDelivered finalizes a successful attempt. Terminal rows are left
// untouched so a redelivered job after an ack loss cannot rewrite history;
// zero rows affected is not an error.
func (s *PGStore) MarkDelivered(ctx context.Context, id string, attempts int, deliveredAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE deliveries
		SET status = $2, attempts = $3, delivered_at = $4, last_attempt_at = $4
		WHERE id = $1 AND status IN ($5, $6)
	`, id, models.DeliveryStatusDelivered, attempts, deliveredAt,
		models.DeliveryStatusPending, models.DeliveryStatusRetrying)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and the resulting status (RETRYING or
// DEAD). Same terminal-row guard as MarkDelivered.
func (s *PGStore) MarkFailed(ctx context.Context, id string, status models.DeliveryStatus, attempts int, lastError string, lastAttemptAt time.Time) error {
	if status != models.DeliveryStatusRetrying && status != models.DeliveryStatusDead {
		return fmt.Errorf("mark failed: invalid status %q", status)
	}
	_, err := s.db.Exec(ctx, `
		UPDATE deliveries
		SET status = $2, attempts = $3, last_error = $4, last_attempt_at = $5
		WHERE id = $1 AND status IN ($6, $7)
	`, id, status, attempts, lastError, lastAttemptAt,
		models.DeliveryStatusPending, models.DeliveryStatusRetrying)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}
