package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
)

func (s *PGStore) CreateDestination(ctx context.Context, destination *models.Destination) error {
	return s.withTx(ctx, func(q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO destinations (id, name, target_url, active, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, destination.ID, destination.Name, destination.TargetURL, destination.Active, destination.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("destination %q: %w", destination.Name, store.ErrDuplicateName)
			}
			return fmt.Errorf("insert destination: %w", err)
		}
		return insertRules(ctx, q, destination.ID, destination.Rules)
	})
}

func insertRules(ctx context.Context, q querier, destinationID string, rules []models.DestinationRule) error {
	batch := &pgx.Batch{}
	for _, rule := range rules {
		batch.Queue(`
			INSERT INTO destination_rules (id, destination_id, source_name, event_type)
			VALUES ($1, $2, $3, $4)
		`, rule.ID, destinationID, rule.SourceName, rule.EventType)
	}
	results := q.SendBatch(ctx, batch)
	defer results.Close()
	for range rules {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate rule: %w", models.ErrInvalidRule)
			}
			return fmt.Errorf("insert rule: %w", err)
		}
	}
	return results.Close()
}

func (s *PGStore) RetrieveDestination(ctx context.Context, id string) (*models.Destination, error) {
	var destination models.Destination
	err := s.db.QueryRow(ctx, `
		SELECT id, name, target_url, active, created_at
		FROM destinations
		WHERE id = $1
	`, id).Scan(&destination.ID, &destination.Name, &destination.TargetURL, &destination.Active, &destination.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query destination: %w", err)
	}

	rules, err := s.listRules(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	destination.Rules = rules[id]
	return &destination, nil
}

func (s *PGStore) ListDestinations(ctx context.Context) ([]*models.Destination, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, target_url, active, created_at
		FROM destinations
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query destinations: %w", err)
	}
	defer rows.Close()

	var destinations []*models.Destination
	var ids []string
	for rows.Next() {
		var destination models.Destination
		if err := rows.Scan(&destination.ID, &destination.Name, &destination.TargetURL, &destination.Active, &destination.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		destinations = append(destinations, &destination)
		ids = append(ids, destination.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(ids) == 0 {
		return destinations, nil
	}
	rules, err := s.listRules(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, destination := range destinations {
		destination.Rules = rules[destination.ID]
	}
	return destinations, nil
}

func (s *PGStore) listRules(ctx context.Context, destinationIDs []string) (map[string][]models.DestinationRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, destination_id, source_name, event_type
		FROM destination_rules
		WHERE destination_id = ANY($1)
		ORDER BY source_name, event_type
	`, destinationIDs)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := make(map[string][]models.DestinationRule)
	for rows.Next() {
		var rule models.DestinationRule
		if err := rows.Scan(&rule.ID, &rule.DestinationID, &rule.SourceName, &rule.EventType); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules[rule.DestinationID] = append(rules[rule.DestinationID], rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return rules, nil
}

// UpdateDestination replaces scalar fields, and the rule set when Rules is
// non-nil.
func (s *PGStore) UpdateDestination(ctx context.Context, destination *models.Destination) error {
	return s.withTx(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE destinations SET name = $2, target_url = $3, active = $4 WHERE id = $1
		`, destination.ID, destination.Name, destination.TargetURL, destination.Active)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("destination %q: %w", destination.Name, store.ErrDuplicateName)
			}
			return fmt.Errorf("update destination: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		if destination.Rules == nil {
			return nil
		}
		if _, err := q.Exec(ctx, `DELETE FROM destination_rules WHERE destination_id = $1`, destination.ID); err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
		return insertRules(ctx, q, destination.ID, destination.Rules)
	})
}

func (s *PGStore) DeleteDestination(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM destinations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListActiveMatching is the fan-out query. Rules are not loaded; the caller
// only needs destination identity and target URL. The unique constraint on
// (destination_id, source_name, event_type) guarantees at most one row per
// destination.
func (s *PGStore) ListActiveMatching(ctx context.Context, sourceName, eventType string) ([]*models.Destination, error) {
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.name, d.target_url, d.active, d.created_at
		FROM destinations d
		JOIN destination_rules r ON r.destination_id = d.id
		WHERE d.active AND r.source_name = $1 AND r.event_type = $2
		ORDER BY d.created_at, d.id
	`, sourceName, eventType)
	if err != nil {
		return nil, fmt.Errorf("query matching destinations: %w", err)
	}
	defer rows.Close()

	var destinations []*models.Destination
	for rows.Next() {
		var destination models.Destination
		if err := rows.Scan(&destination.ID, &destination.Name, &destination.TargetURL, &destination.Active, &destination.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		destinations = append(destinations, &destination)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return destinations, nil
}
