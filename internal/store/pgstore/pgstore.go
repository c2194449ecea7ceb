// Package pgstore is the PostgreSQL implementation of the store interfaces,
// built on pgx v5 pools.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/webhookhub/webhookhub/internal/store"
)

const (
	cursorResourceEvent    = "evt"
	cursorResourceDelivery = "dlv"
	cursorVersion          = 1

	pgUniqueViolation = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// method works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type PGStore struct {
	db   querier
	pool *pgxpool.Pool // nil when the store is bound to a transaction
}

var _ store.Store = (*PGStore)(nil)

func New(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool, pool: pool}
}

// IngestTx runs fn inside a REPEATABLE READ transaction so the idempotency
// insert and the delivery fan-out land atomically.
func (s *PGStore) IngestTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.pool == nil {
		return errors.New("pgstore: nested transaction")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PGStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// withTx wraps fn in a transaction, or runs it directly when the store is
// already transaction-bound.
func (s *PGStore) withTx(ctx context.Context, fn func(q querier) error) error {
	if s.pool == nil {
		return fn(s.db)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// makeCursorID builds the sortable list position for a row. Fixed-width UTC
// nanoseconds keep string order identical to (time, id) order.
func makeCursorID(t time.Time, id string) string {
	return fmt.Sprintf("%s_%s", t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), id)
}
