// Package database holds the PostgreSQL and Redis connections, the embedded
// schema and the repositories for every persisted entity.
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	// Begin starts a transaction.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// isNoRows reports whether err is pgx's "no rows in result set".
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// rollback is deferred after Begin. It is a no-op once the tx is committed.
func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

// nullIfZero maps the zero value of optional numeric columns to NULL.
func nullIfZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// nullIfEmpty maps an empty optional id to NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
