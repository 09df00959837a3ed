package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aras-services/goframe/internal/orm"
)

// fakeAdapter is a minimal in-memory orm.Adapter standing in for Postgres in
// tests. It understands exactly the bounded statement shapes Base and the
// synthesizer emit (plain SELECT/INSERT/UPDATE/DELETE/COUNT against one
// table, WHERE clauses of "col OP $n" fragments joined by AND/OR, ORDER BY),
// enough to exercise plan execution without a live database. Both Base and
// the synthesizer talk only to the orm.Adapter interface, so a fake
// satisfies them identically to a real pgx-backed one.
type fakeAdapter struct {
	mu    sync.Mutex
	table map[string][]map[string]any
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{table: make(map[string][]map[string]any)}
}

func (a *fakeAdapter) Dialect() string { return "fake" }
func (a *fakeAdapter) Close()          {}

func (a *fakeAdapter) Open(ctx context.Context) (orm.Session, error) {
	return &fakeSession{adapter: a}, nil
}

type fakeSession struct{ adapter *fakeAdapter }

func (s *fakeSession) Close() {}

func (s *fakeSession) Begin(ctx context.Context) (orm.Tx, error) {
	return &fakeTx{adapter: s.adapter}, nil
}

type fakeTx struct{ adapter *fakeAdapter }

func (t *fakeTx) Commit(ctx context.Context) error   { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

var (
	insertPattern = regexp.MustCompile(`(?i)^INSERT INTO (\w+) \(([^)]*)\) VALUES`)
	updatePattern = regexp.MustCompile(`(?i)^UPDATE (\w+) SET (.+?) WHERE (.+)$`)
	deletePattern = regexp.MustCompile(`(?i)^DELETE FROM (\w+)(?: WHERE (.+))?$`)
	selectPattern = regexp.MustCompile(`(?i)^SELECT (.+?) FROM (\w+)(?: WHERE (.+?))?(?: ORDER BY (.+))?$`)
	assignPattern = regexp.MustCompile(`(\w+)\s*=\s*\$(\d+)`)
)

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
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
			if whereClause == "" {
				removed++
				continue
			}
			removed++
		}
		t.adapter.table[table] = kept
		return removed, nil
	}
	return 0, fmt.Errorf("fakeAdapter: unsupported Exec: %s", sql)
}

func (t *fakeTx) selectRows(sql string, args []any) (string, []map[string]any, error) {
	t.adapter.mu.Lock()
	defer t.adapter.mu.Unlock()

	m := selectPattern.FindStringSubmatch(sql)
	if m == nil {
		return "", nil, fmt.Errorf("fakeAdapter: unsupported Query: %s", sql)
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

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) orm.Row {
	cols, rows, err := t.selectRows(sql, args)
	if err != nil {
		return &fakeRow{err: err}
	}
	if strings.Contains(sql, "COUNT(*)") {
		return &fakeRow{cols: []string{"count"}, row: map[string]any{"count": int64(len(rows))}}
	}
	if len(rows) == 0 {
		return &fakeRow{err: orm.ErrNoRows}
	}
	return &fakeRow{cols: splitComma(cols), row: rows[0]}
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (orm.Rows, error) {
	cols, rows, err := t.selectRows(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{cols: splitComma(cols), rows: rows}, nil
}

type fakeRow struct {
	cols []string
	row  map[string]any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanRowInto(r.cols, r.row, dest)
}

func (r *fakeRow) Values() (map[string]any, error) { return r.row, r.err }

type fakeRows struct {
	cols []string
	rows []map[string]any
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	return scanRowInto(r.cols, r.rows[r.idx-1], dest)
}

func (r *fakeRows) Values() (map[string]any, error) { return r.rows[r.idx-1], nil }

func scanRowInto(cols []string, row map[string]any, dest []any) error {
	if row == nil {
		return orm.ErrNoRows
	}
	if len(cols) != len(dest) {
		return fmt.Errorf("fakeAdapter: column/dest mismatch %d vs %d (%v)", len(cols), len(dest), cols)
	}
	for i, c := range cols {
		assignAny(dest[i], row[c])
	}
	return nil
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
func evalWhere(clause string, row map[string]any, args []any) bool {
	orGroups := strings.Split(clause, " OR ")
	for _, group := range orGroups {
		andFragments := strings.Split(group, " AND ")
		allTrue := true
		for _, frag := range andFragments {
			if !evalFragment(strings.TrimSpace(frag), row, args) {
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

var fragmentPattern = regexp.MustCompile(`^(\w+)\s*(=|!=|>=|<=|>|<)\s*\$(\d+)$`)

func evalFragment(frag string, row map[string]any, args []any) bool {
	if strings.HasSuffix(frag, "IS NULL") {
		col := strings.TrimSpace(strings.TrimSuffix(frag, "IS NULL"))
		return row[col] == nil
	}
	if strings.HasSuffix(frag, "IS NOT NULL") {
		col := strings.TrimSpace(strings.TrimSuffix(frag, "IS NOT NULL"))
		return row[col] != nil
	}
	m := fragmentPattern.FindStringSubmatch(frag)
	if m == nil {
		return false
	}
	col, op := m[1], m[2]
	idx, _ := strconv.Atoi(m[3])
	arg := args[idx-1]
	return compareValues(row[col], op, arg)
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
