package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aras-services/goframe/internal/orm"
)

// Base is the generic base-repository implementation spec.md §4.5 calls
// "base-repository operations [that] delegate to a shared, generic
// implementation that uses the ORM adapter". Repository types embed
// Base[T, ID] anonymously; Go's embedding gives every embedder the
// save/findById/findAll/... method set for free, the idiomatic stand-in for
// the Java source's base-repository interface inheritance.
type Base[T any, ID comparable] struct {
	adapter orm.Adapter
	meta    *EntityMeta
}

// Bind wires the adapter and entity metadata into an embedded Base; the
// Synthesizer calls this before any base operation is used. Exported so the
// synthesizer can reach it through the Binder interface via reflection,
// since embedding hides it behind the enclosing repository struct.
func (b *Base[T, ID]) Bind(adapter orm.Adapter, meta *EntityMeta) {
	b.adapter = adapter
	b.meta = meta
}

func (b *Base[T, ID]) withTx(ctx context.Context, fn func(tx orm.Tx) error) error {
	sess, err := b.adapter.Open(ctx)
	if err != nil {
		return fmt.Errorf("repository: opening session: %w", err)
	}
	defer sess.Close()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("repository failure: %w (rollback also failed: %v)", err, rbErr)
		}
		return fmt.Errorf("repository failure: %w", err)
	}
	return tx.Commit(ctx)
}

// Save inserts or updates entity by primary key: an insert if no row with
// that id currently exists, an update otherwise, collapsing the teacher's
// Create/Update split into the base contract's single `save`. The id
// presence check (not the id's zero-ness) decides the branch, since callers
// routinely assign ids themselves rather than relying on generated keys.
func (b *Base[T, ID]) Save(ctx context.Context, entity *T) error {
	v := reflect.ValueOf(entity).Elem()
	id := v.Field(b.meta.Columns[b.meta.IDIdx].FieldIdx).Interface().(ID)

	exists, err := b.ExistsByID(ctx, id)
	if err != nil {
		return err
	}

	return b.withTx(ctx, func(tx orm.Tx) error {
		if !exists {
			return b.insert(ctx, tx, v)
		}
		return b.update(ctx, tx, v)
	})
}

func (b *Base[T, ID]) insert(ctx context.Context, tx orm.Tx, v reflect.Value) error {
	cols := make([]string, len(b.meta.Columns))
	placeholders := make([]string, len(b.meta.Columns))
	args := make([]any, len(b.meta.Columns))
	for i, c := range b.meta.Columns {
		cols[i] = c.Column
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v.Field(c.FieldIdx).Interface()
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", b.meta.Table, joinComma(cols), joinComma(placeholders))
	_, err := tx.Exec(ctx, sql, args...)
	return err
}

func (b *Base[T, ID]) update(ctx context.Context, tx orm.Tx, v reflect.Value) error {
	idCol := b.meta.Columns[b.meta.IDIdx]
	var sets []string
	var args []any
	n := 1
	for _, c := range b.meta.Columns {
		if c.IsID {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column, n))
		args = append(args, v.Field(c.FieldIdx).Interface())
		n++
	}
	args = append(args, v.Field(idCol.FieldIdx).Interface())
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", b.meta.Table, joinComma(sets), idCol.Column, n)
	_, err := tx.Exec(ctx, sql, args...)
	return err
}

// SaveAll persists each entity in turn via Save, each in its own
// transaction; it stops at the first error, leaving earlier saves in place.
func (b *Base[T, ID]) SaveAll(ctx context.Context, entities []*T) error {
	for _, e := range entities {
		if err := b.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// SaveAndFlush is Save with no separate flush phase: every write already
// commits its own transaction, so this is a direct alias.
func (b *Base[T, ID]) SaveAndFlush(ctx context.Context, entity *T) error {
	return b.Save(ctx, entity)
}

// Flush is a no-op: this implementation has no write-behind cache to flush.
func (b *Base[T, ID]) Flush(ctx context.Context) error { return nil }

// notDeletedClause returns a " AND <col> IS NULL" fragment when the entity
// has a soft-delete column, or "" otherwise.
func (b *Base[T, ID]) notDeletedClause() string {
	if b.meta.SoftDeleteColumn == "" {
		return ""
	}
	return fmt.Sprintf(" AND %s IS NULL", b.meta.SoftDeleteColumn)
}

// FindByID loads one entity by primary key, returning (nil, nil) when
// absent (the Go idiom for the base contract's optional-of-T).
func (b *Base[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	var result *T
	err := b.withTx(ctx, func(tx orm.Tx) error {
		sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1%s", b.selectColumns(), b.meta.Table, b.meta.Columns[b.meta.IDIdx].Column, b.notDeletedClause())
		row := tx.QueryRow(ctx, sql, id)
		entity, err := b.scanOne(row)
		if err != nil {
			if orm.IsNoRows(err) {
				return nil
			}
			return err
		}
		result = entity
		return nil
	})
	return result, err
}

// FindAll returns every row of the entity's table, excluding soft-deleted
// rows when the entity has a soft-delete column.
func (b *Base[T, ID]) FindAll(ctx context.Context) ([]*T, error) {
	var result []*T
	err := b.withTx(ctx, func(tx orm.Tx) error {
		sql := fmt.Sprintf("SELECT %s FROM %s", b.selectColumns(), b.meta.Table)
		if b.meta.SoftDeleteColumn != "" {
			sql += fmt.Sprintf(" WHERE %s IS NULL", b.meta.SoftDeleteColumn)
		}
		rows, err := tx.Query(ctx, sql)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err = b.scanAll(rows)
		return err
	})
	return result, err
}

// FindAllByID returns the rows matching any of the given ids.
func (b *Base[T, ID]) FindAllByID(ctx context.Context, ids []ID) ([]*T, error) {
	var result []*T
	err := b.withTx(ctx, func(tx orm.Tx) error {
		idCol := b.meta.Columns[b.meta.IDIdx].Column
		sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1)%s", b.selectColumns(), b.meta.Table, idCol, b.notDeletedClause())
		rows, err := tx.Query(ctx, sql, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		result, err = b.scanAll(rows)
		return err
	})
	return result, err
}

// ExistsByID reports whether a row with the given id exists.
func (b *Base[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	var exists bool
	err := b.withTx(ctx, func(tx orm.Tx) error {
		sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1%s", b.meta.Table, b.meta.Columns[b.meta.IDIdx].Column, b.notDeletedClause())
		var count int64
		if err := tx.QueryRow(ctx, sql, id).Scan(&count); err != nil {
			return err
		}
		exists = count > 0
		return nil
	})
	return exists, err
}

// Count returns the total row count.
func (b *Base[T, ID]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := b.withTx(ctx, func(tx orm.Tx) error {
		sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", b.meta.Table)
		if b.meta.SoftDeleteColumn != "" {
			sql += fmt.Sprintf(" WHERE %s IS NULL", b.meta.SoftDeleteColumn)
		}
		return tx.QueryRow(ctx, sql).Scan(&count)
	})
	return count, err
}

// DeleteByID removes the row with the given id, or — when the entity
// carries a soft-delete column — sets that column instead of removing the
// row, so every read continues to filter it out.
func (b *Base[T, ID]) DeleteByID(ctx context.Context, id ID) error {
	return b.withTx(ctx, func(tx orm.Tx) error {
		var sql string
		if b.meta.SoftDeleteColumn != "" {
			sql = fmt.Sprintf("UPDATE %s SET %s = NOW() WHERE %s = $1", b.meta.Table, b.meta.SoftDeleteColumn, b.meta.Columns[b.meta.IDIdx].Column)
		} else {
			sql = fmt.Sprintf("DELETE FROM %s WHERE %s = $1", b.meta.Table, b.meta.Columns[b.meta.IDIdx].Column)
		}
		_, err := tx.Exec(ctx, sql, id)
		return err
	})
}

// Delete removes the given entity by its primary key.
func (b *Base[T, ID]) Delete(ctx context.Context, entity *T) error {
	v := reflect.ValueOf(entity).Elem()
	id := v.Field(b.meta.Columns[b.meta.IDIdx].FieldIdx).Interface().(ID)
	return b.DeleteByID(ctx, id)
}

// DeleteAllByID removes every row whose id is in ids.
func (b *Base[T, ID]) DeleteAllByID(ctx context.Context, ids []ID) error {
	return b.withTx(ctx, func(tx orm.Tx) error {
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", b.meta.Table, b.meta.Columns[b.meta.IDIdx].Column)
		_, err := tx.Exec(ctx, sql, ids)
		return err
	})
}

// DeleteAll removes every row, one statement per entity (preserving
// per-row transaction semantics); DeleteAllInBatch is the single-statement
// variant.
func (b *Base[T, ID]) DeleteAll(ctx context.Context, entities []*T) error {
	for _, e := range entities {
		if err := b.Delete(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllInBatch truncates the entire table in one statement.
func (b *Base[T, ID]) DeleteAllInBatch(ctx context.Context) error {
	return b.withTx(ctx, func(tx orm.Tx) error {
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", b.meta.Table))
		return err
	})
}

func (b *Base[T, ID]) selectColumns() string {
	cols := make([]string, len(b.meta.Columns))
	for i, c := range b.meta.Columns {
		cols[i] = c.Column
	}
	return joinComma(cols)
}

func (b *Base[T, ID]) scanOne(row orm.Row) (*T, error) {
	var entity T
	v := reflect.ValueOf(&entity).Elem()
	dest := make([]any, len(b.meta.Columns))
	for i, c := range b.meta.Columns {
		dest[i] = v.Field(c.FieldIdx).Addr().Interface()
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (b *Base[T, ID]) scanAll(rows orm.Rows) ([]*T, error) {
	var out []*T
	for rows.Next() {
		entity, err := b.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
