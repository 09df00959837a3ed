// Package orm defines the narrow session/transaction contract the
// repository synthesizer depends on (spec.md §2 item 5, "ORM Adapter"), and
// a pgx-backed implementation of it. The contract is intentionally opaque:
// open a session, begin/commit/rollback a transaction, run a query with
// positional or named parameters, iterate rows, run an update.
package orm

import (
	"context"
	"errors"
	"fmt"
)

// Row is a single result row, addressable by column name, the shape every
// repository plan scans into before reflecting values onto an entity.
type Row interface {
	Scan(dest ...any) error
	Values() (map[string]any, error)
}

// Rows iterates a multi-row result set.
type Rows interface {
	Next() bool
	Row
	Close()
	Err() error
}

// Session is the live handle returned by Adapter.Open. All repository
// execution happens against a Session, inside a Tx.
type Session interface {
	// Begin starts a transaction bound to this session.
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Tx is a single begin/commit-or-rollback unit of work, per spec.md §4.5
// "Execution of a planned call".
type Tx interface {
	// Query runs a SELECT-shaped statement and returns an iterable result.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// QueryRow runs a SELECT expected to produce at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row
	// Exec runs an INSERT/UPDATE/DELETE and returns the affected row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Adapter is the ORM Adapter component: an opaque session/transaction
// factory the synthesizer and base repository operations depend on.
type Adapter interface {
	Open(ctx context.Context) (Session, error)
	// Dialect reports the SQL dialect in use. The synthesizer and Base do
	// not consult it: they always emit $n positional placeholders.
	Dialect() string
	Close()
}

// ErrNoRows is returned by QueryRow/Row.Scan when no row matched; repository
// base operations translate it into an empty optional rather than an error.
var ErrNoRows = fmt.Errorf("orm: no rows in result set")

// IsNoRows reports whether err represents a not-found single-row query,
// unwrapping through any wrapping performed by the concrete adapter.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
