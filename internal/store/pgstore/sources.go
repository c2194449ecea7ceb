package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/webhookhub/webhookhub/internal/models"
	"github.com/webhookhub/webhookhub/internal/store"
)

func (s *PGStore) CreateSource(ctx context.Context, source *models.Source) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sources (id, name, hmac_secret, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, source.ID, source.Name, source.HMACSecret, source.Active, source.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("source %q: %w", source.Name, store.ErrDuplicateName)
		}
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (s *PGStore) RetrieveSource(ctx context.Context, id string) (*models.Source, error) {
	return s.retrieveSource(ctx, "id = $1", id)
}

func (s *PGStore) RetrieveSourceByName(ctx context.Context, name string) (*models.Source, error) {
	return s.retrieveSource(ctx, "name = $1", name)
}

func (s *PGStore) retrieveSource(ctx context.Context, where string, arg any) (*models.Source, error) {
	var source models.Source
	err := s.db.QueryRow(ctx, `
		SELECT id, name, hmac_secret, active, created_at
		FROM sources
		WHERE `+where,
		arg,
	).Scan(&source.ID, &source.Name, &source.HMACSecret, &source.Active, &source.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query source: %w", err)
	}
	return &source, nil
}

func (s *PGStore) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, hmac_secret, active, created_at
		FROM sources
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var source models.Source
		if err := rows.Scan(&source.ID, &source.Name, &source.HMACSecret, &source.Active, &source.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, &source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sources, nil
}

func (s *PGStore) UpdateSource(ctx context.Context, source *models.Source) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sources SET name = $2, active = $3 WHERE id = $1
	`, source.ID, source.Name, source.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("source %q: %w", source.Name, store.ErrDuplicateName)
		}
		return fmt.Errorf("update source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteSource(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
