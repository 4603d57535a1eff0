package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx shared by pgxpool.Pool and pgx.Tx, so every
// query method works both inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner opens transactions; *pgxpool.Pool satisfies it
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the persistence gateway. It is the single source of truth;
// conflicting writes serialize at the row level in Postgres.
type Store struct {
	db   DB
	pool txBeginner
}

// New creates a Store backed by the connection pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// withTx runs fn against a transaction-scoped Store and commits only if
// fn returns nil; any failure mid-sequence rolls the whole thing back.
func (s *Store) withTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx, pool: s.pool}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
