package orm

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errUnsupportedOnSingleRow = errors.New("orm: Values is unsupported on a QueryRow result, use Query")

// PgxAdapter implements Adapter against a pgxpool.Pool, the connection
// pooling style the teacher's cmd/server.main wires up directly. It is the
// only Adapter the framework ships; other backends implement the same
// interface independently.
type PgxAdapter struct {
	pool *pgxpool.Pool
}

// NewPgxAdapter wraps an already-connected pool. Callers construct the pool
// with pgxpool.New(ctx, dsn) and pass it here, matching the teacher's
// composition-root ordering (connect, ping, then hand the pool to
// consumers).
func NewPgxAdapter(pool *pgxpool.Pool) *PgxAdapter {
	return &PgxAdapter{pool: pool}
}

func (a *PgxAdapter) Dialect() string { return "postgres" }

func (a *PgxAdapter) Close() { a.pool.Close() }

func (a *PgxAdapter) Open(ctx context.Context) (Session, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxSession{conn: conn}, nil
}

type pgxSession struct {
	conn *pgxpool.Conn
}

func (s *pgxSession) Close() { s.conn.Release() }

func (s *pgxSession) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (t *pgxTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return &pgxRow{row: t.tx.QueryRow(ctx, sql, args...)}
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if err == pgx.ErrNoRows {
		return ErrNoRows
	}
	return err
}

// Values is unsupported on a single pgx.Row (it exposes only Scan); callers
// needing column-by-name access use Query instead of QueryRow.
func (r *pgxRow) Values() (map[string]any, error) {
	return nil, errUnsupportedOnSingleRow
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }
func (r *pgxRows) Err() error { return r.rows.Err() }

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Values() (map[string]any, error) {
	fields := r.rows.FieldDescriptions()
	vals, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for i, f := range fields {
		out[string(f.Name)] = vals[i]
	}
	return out, nil
}

