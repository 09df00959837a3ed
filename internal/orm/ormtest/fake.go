// Package ormtest provides an in-memory orm.Adapter for exercising the
// repository Synthesizer and Base against realistic generated SQL without a
// live Postgres instance. It understands exactly the bounded statement
// shapes Base and the synthesizer emit (plain SELECT/INSERT/UPDATE/DELETE/
// COUNT against one table, WHERE clauses of "col OP $n" fragments joined by
// AND/OR, ORDER BY) — the same fixed grammar internal/repository's own test
// fake is built against, exported here so other packages' tests (entity,
// scan) can exercise the real repository stack end to end.
package ormtest

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aras-services/goframe/internal/orm"
)

// Adapter is a minimal in-memory orm.Adapter standing in for Postgres.
type Adapter struct {
	mu    sync.Mutex
	table map[string][]map[string]any
}

// New creates an empty in-memory Adapter.
func New() *Adapter {
	return &Adapter{table: make(map[string][]map[string]any)}
}

func (a *Adapter) Dialect() string { return "faketest" }
func (a *Adapter) Close()          {}

func (a *Adapter) Open(ctx context.Context) (orm.Session, error) {
	return &session{adapter: a}, nil
}

// Rows exposes the raw in-memory table for a test to assert against.
func (a *Adapter) Rows(table string) []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table[table]
}

type session struct{ adapter *Adapter }

func (s *session) Close() {}

func (s *session) Begin(ctx context.Context) (orm.Tx, error) {
	return &tx{adapter: s.adapter}, nil
}

type tx struct{ adapter *Adapter }

func (t *tx) Commit(ctx context.Context) error   { return nil }
func (t *tx) Rollback(ctx context.Context) error { return nil }

var (
	insertPattern = regexp.MustCompile(`(?i)^INSERT INTO (\w+) \(([^)]*)\) VALUES`)
	updatePattern = regexp.MustCompile(`(?i)^UPDATE (\w+) SET (.+?) WHERE (.+)$`)
	deletePattern = regexp.MustCompile(`(?i)^DELETE FROM (\w+)(?: WHERE (.+))?$`)
	selectPattern = regexp.MustCompile(`(?i)^SELECT (.+?) FROM (\w+)(?: WHERE (.+?))?(?: ORDER BY (.+))?$`)
	assignPattern = regexp.MustCompile(`(\w+)\s*=\s*\$(\d+)`)
	nowPattern    = regexp.MustCompile(`(\w+)\s*=\s*NOW\(\)`)
)

func (t *tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	t.adapter.mu.Lock()
	defer t.adapter.mu.Unlock()

	if m := insertPattern.FindStringSubmatch(sql); m != nil {
		table, cols := m[1], splitComma(m[2])
		row := map[string]any{}
		for i, c := range cols {
			row[c] = args[i]
		}
		t.adapter.table[table] = append(t.adapter.table[table], row)
		return 1, nil
	}
	if m := updatePattern.FindStringSubmatch(sql); m != nil {
		table, setClause, whereClause := m[1], m[2], m[3]
		assignments := assignPattern.FindAllStringSubmatch(setClause, -1)
		var affected int64
		for _, row := range t.adapter.table[table] {
			if !evalWhere(whereClause, row, args) {
				continue
			}
			for _, a := range assignments {
				col := a[1]
				idx, _ := strconv.Atoi(a[2])
				row[col] = args[idx-1]
			}
			for _, a := range nowPattern.FindAllStringSubmatch(setClause, -1) {
				now := time.Now()
				row[a[1]] = &now
			}
			affected++
		}
		return affected, nil
	}
	if m := deletePattern.FindStringSubmatch(sql); m != nil {
		table, whereClause := m[1], m[2]
		var kept []map[string]any
		var removed int64
		for _, row := range t.adapter.table[table] {
			if whereClause != "" && !evalWhere(whereClause, row, args) {
				kept = append(kept, row)
				continue
			}
			removed++
		}
		t.adapter.table[table] = kept
		return removed, nil
	}
	return 0, fmt.Errorf("ormtest: unsupported Exec: %s", sql)
}

func (t *tx) selectRows(sql string, args []any) (string, []map[string]any, error) {
	t.adapter.mu.Lock()
	defer t.adapter.mu.Unlock()

	m := selectPattern.FindStringSubmatch(sql)
	if m == nil {
		return "", nil, fmt.Errorf("ormtest: unsupported Query: %s", sql)
	}
	cols, table, whereClause, orderClause := strings.TrimSpace(m[1]), m[2], m[3], m[4]

	var out []map[string]any
	for _, row := range t.adapter.table[table] {
		if whereClause == "" || evalWhere(whereClause, row, args) {
			out = append(out, row)
		}
	}
	if orderClause != "" {
		applyOrder(orderClause, out)
	} else {
		sort.Slice(out, func(i, j int) bool { return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"]) })
	}
	return cols, out, nil
}

func (t *tx) QueryRow(ctx context.Context, sql string, args ...any) orm.Row {
	cols, rows, err := t.selectRows(sql, args)
	if err != nil {
		return &row{err: err}
	}
	if strings.Contains(sql, "COUNT(*)") {
		return &row{cols: []string{"count"}, data: map[string]any{"count": int64(len(rows))}}
	}
	if len(rows) == 0 {
		return &row{err: orm.ErrNoRows}
	}
	return &row{cols: splitComma(cols), data: rows[0]}
}

func (t *tx) Query(ctx context.Context, sql string, args ...any) (orm.Rows, error) {
	cols, rows, err := t.selectRows(sql, args)
	if err != nil {
		return nil, err
	}
	return &rowsIter{cols: splitComma(cols), rows: rows}, nil
}

type row struct {
	cols []string
	data map[string]any
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanRowInto(r.cols, r.data, dest)
}

func (r *row) Values() (map[string]any, error) { return r.data, r.err }

type rowsIter struct {
	cols []string
	rows []map[string]any
	idx  int
}

func (r *rowsIter) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *rowsIter) Close()     {}
func (r *rowsIter) Err() error { return nil }

func (r *rowsIter) Scan(dest ...any) error {
	return scanRowInto(r.cols, r.rows[r.idx-1], dest)
}

func (r *rowsIter) Values() (map[string]any, error) { return r.rows[r.idx-1], nil }

func scanRowInto(cols []string, data map[string]any, dest []any) error {
	if data == nil {
		return orm.ErrNoRows
	}
	if len(cols) != len(dest) {
		return fmt.Errorf("ormtest: column/dest mismatch %d vs %d (%v)", len(cols), len(dest), cols)
	}
	for i, c := range cols {
		assignAny(dest[i], data[c])
	}
	return nil
}

// assignAny writes value into dest, a pointer obtained via
// reflect.Value.Addr().Interface(), converting between the stored dynamic
// type and the destination's concrete type the way pgx's Scan does.
func assignAny(dest any, value any) {
	dv := reflect.ValueOf(dest).Elem()
	if value == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(dv.Type()) {
		dv.Set(vv)
		return
	}
	if vv.Type().ConvertibleTo(dv.Type()) {
		dv.Set(vv.Convert(dv.Type()))
		return
	}
	panic(fmt.Sprintf("ormtest: cannot assign %T into %s", value, dv.Type()))
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// evalWhere evaluates a WHERE clause made of "col OP $n" fragments joined
// by " AND "/" OR " as a flat OR of AND groups. Parentheses are not
// understood, so the parenthesized OR group the synthesizer emits for an OR
// query on a soft-delete entity is not evaluated correctly.
func evalWhere(clause string, data map[string]any, args []any) bool {
	orGroups := strings.Split(clause, " OR ")
	for _, group := range orGroups {
		andFragments := strings.Split(group, " AND ")
		allTrue := true
		for _, frag := range andFragments {
			if !evalFragment(strings.TrimSpace(frag), data, args) {
				allTrue = false
				break
			}
		}
		if allTrue {
			return true
		}
	}
	return false
}

var (
	fragmentPattern = regexp.MustCompile(`^(\w+)\s*(=|!=|>=|<=|>|<)\s*\$(\d+)$`)
	anyPattern      = regexp.MustCompile(`^(\w+)\s*=\s*ANY\(\$(\d+)\)$`)
)

func evalFragment(frag string, data map[string]any, args []any) bool {
	// A nil pointer (e.g. an unset *time.Time) is stored as a typed nil, which
	// counts as NULL just as pgx would bind it.
	isNull := func(v any) bool {
		if v == nil {
			return true
		}
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.Ptr && rv.IsNil()
	}
	if strings.HasSuffix(frag, "IS NULL") {
		col := strings.TrimSpace(strings.TrimSuffix(frag, "IS NULL"))
		return isNull(data[col])
	}
	if strings.HasSuffix(frag, "IS NOT NULL") {
		col := strings.TrimSpace(strings.TrimSuffix(frag, "IS NOT NULL"))
		return !isNull(data[col])
	}
	if m := anyPattern.FindStringSubmatch(frag); m != nil {
		col := m[1]
		idx, _ := strconv.Atoi(m[2])
		return containsValue(args[idx-1], data[col])
	}
	m := fragmentPattern.FindStringSubmatch(frag)
	if m == nil {
		return false
	}
	col, op := m[1], m[2]
	idx, _ := strconv.Atoi(m[3])
	arg := args[idx-1]
	return compareValues(data[col], op, arg)
}

// containsValue reports whether rowVal equals any element of slice, the
// evaluator for "col = ANY($n)" fragments against a slice argument.
func containsValue(slice any, rowVal any) bool {
	sv := reflect.ValueOf(slice)
	if sv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < sv.Len(); i++ {
		if compareValues(rowVal, "=", sv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func compareValues(rowVal any, op string, arg any) bool {
	rf, rok := toFloat(rowVal)
	af, aok := toFloat(arg)
	if rok && aok {
		switch op {
		case "=":
			return rf == af
		case "!=":
			return rf != af
		case ">":
			return rf > af
		case ">=":
			return rf >= af
		case "<":
			return rf < af
		case "<=":
			return rf <= af
		}
	}
	rs, as := fmt.Sprint(rowVal), fmt.Sprint(arg)
	switch op {
	case "=":
		return rs == as
	case "!=":
		return rs != as
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func applyOrder(orderClause string, rows []map[string]any) {
	terms := strings.Split(orderClause, ",")
	type term struct {
		col  string
		desc bool
	}
	var parsed []term
	for _, t := range terms {
		t = strings.TrimSpace(t)
		desc := strings.HasSuffix(t, " DESC")
		col := strings.TrimSuffix(strings.TrimSuffix(t, " DESC"), " ASC")
		parsed = append(parsed, term{col: strings.TrimSpace(col), desc: desc})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, p := range parsed {
			a, b := fmt.Sprint(rows[i][p.col]), fmt.Sprint(rows[j][p.col])
			if a == b {
				continue
			}
			if p.desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}
