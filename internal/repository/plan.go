package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aras-services/goframe/internal/queryparse"
)

// Directive captures a query annotation that bypasses method-name parsing:
// a literal query string, whether it runs native SQL (`?n` positional
// placeholders) or uses the framework's own placeholder syntax, and whether
// it is a modifying (update/delete) statement (spec.md §4.5 step 2).
type Directive struct {
	Query     string
	Native    bool
	Modifying bool
}

// ReturnShape tells the dispatcher how to shape a plan's result, per
// spec.md §4.5 "Execution of a planned call".
type ReturnShape int

const (
	ShapeList ReturnShape = iota
	ShapeOptional
	ShapeCount
	ShapeExists
	ShapeAffectedRows
)

// Plan is the precomputed, cached execution plan for one repository
// method: either derived from a parsed Intent or from a Directive.
type Plan struct {
	MethodName string
	SQL        string
	ParamCount int
	Shape      ReturnShape
	Modifying  bool
	// Wildcards maps a bind-argument index (0-based) to the wrapping a
	// string predicate needs applied at bind time (spec.md §4.4: "%v%",
	// "v%", "%v"); absent entries bind verbatim.
	Wildcards map[int]string
}

// BuildPlan derives a Plan for a method name against an entity's metadata,
// either from an explicit directive or by parsing the method name (spec.md
// §4.5 step 2). isUnbindable method names surface as an error the
// synthesizer treats as a startup-phase failure.
func BuildPlan(methodName string, meta *EntityMeta, directive *Directive, returnsList, returnsOptional bool) (*Plan, error) {
	if directive != nil {
		return buildDirectivePlan(methodName, directive)
	}

	intent, err := queryparse.ParseMethodName(lowerFirst(methodName), meta.FieldNames())
	if err != nil {
		return nil, fmt.Errorf("repository: unbindable method %q: %w", methodName, err)
	}

	sql, err := buildSQLFromIntent(intent, meta)
	if err != nil {
		return nil, fmt.Errorf("repository: building query for %q: %w", methodName, err)
	}

	shape := shapeForIntent(intent, returnsList, returnsOptional)
	return &Plan{
		MethodName: methodName,
		SQL:        sql,
		ParamCount: intent.ParamCount,
		Shape:      shape,
		Modifying:  intent.Operation == queryparse.OpDelete,
		Wildcards:  wildcardsForIntent(intent),
	}, nil
}

func wildcardsForIntent(intent *queryparse.Intent) map[int]string {
	var out map[int]string
	for _, p := range intent.Predicates {
		if p.Wildcard == "" {
			continue
		}
		if out == nil {
			out = make(map[int]string)
		}
		out[p.ParamStart] = p.Wildcard
	}
	return out
}

func buildDirectivePlan(methodName string, d *Directive) (*Plan, error) {
	shape := ShapeList
	if d.Modifying {
		shape = ShapeAffectedRows
	}
	sql := d.Query
	if d.Native {
		sql = rewriteNativePlaceholders(sql)
	}
	return &Plan{
		MethodName: methodName,
		SQL:        sql,
		ParamCount: strings.Count(d.Query, "?"),
		Shape:      shape,
		Modifying:  d.Modifying,
	}, nil
}

// rewriteNativePlaceholders turns `?1`, `?2`, ... positional native
// placeholders into pgx's `$1`, `$2`, ... syntax (spec.md §4.5: "positional
// binding for native directives when the literal uses ?n syntax").
func rewriteNativePlaceholders(sql string) string {
	var sb strings.Builder
	i := 0
	for i < len(sql) {
		if sql[i] == '?' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			sb.WriteByte('$')
			sb.WriteString(sql[i+1 : j])
			i = j
			continue
		}
		sb.WriteByte(sql[i])
		i++
	}
	return sb.String()
}

func shapeForIntent(intent *queryparse.Intent, returnsList, returnsOptional bool) ReturnShape {
	switch intent.Operation {
	case queryparse.OpCount:
		return ShapeCount
	case queryparse.OpExists:
		return ShapeExists
	case queryparse.OpDelete:
		return ShapeAffectedRows
	default:
		if returnsList {
			return ShapeList
		}
		if returnsOptional {
			return ShapeOptional
		}
		return ShapeList
	}
}

// selectColumnList joins the entity's column names for a SELECT list.
func selectColumnList(meta *EntityMeta) string {
	cols := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		cols[i] = c.Column
	}
	return strings.Join(cols, ", ")
}

// buildSQLFromIntent renders a SELECT/DELETE statement with $n pgx
// placeholders, wildcards applied to string predicates at bind time by the
// caller (the column's bound value is wrapped, not the SQL text).
func buildSQLFromIntent(intent *queryparse.Intent, meta *EntityMeta) (string, error) {
	var sb strings.Builder
	switch intent.Operation {
	case queryparse.OpCount:
		fmt.Fprintf(&sb, "SELECT COUNT(*) FROM %s", meta.Table)
	case queryparse.OpExists:
		fmt.Fprintf(&sb, "SELECT COUNT(*) FROM %s", meta.Table)
	case queryparse.OpDelete:
		fmt.Fprintf(&sb, "DELETE FROM %s", meta.Table)
	default:
		// Select columns explicitly, in meta.Columns order, so the
		// synthesizer's positional scan lines up with the result set
		// exactly as it does for Base's own queries.
		fmt.Fprintf(&sb, "SELECT %s FROM %s", selectColumnList(meta), meta.Table)
	}

	var predicates strings.Builder
	hasOr := false
	paramN := 1
	for i, p := range intent.Predicates {
		col, ok := meta.ColumnFor(p.Field)
		if !ok {
			return "", fmt.Errorf("field %q not found on entity %s", p.Field, meta.Type)
		}
		if i > 0 {
			if p.Or {
				predicates.WriteString(" OR ")
				hasOr = true
			} else {
				predicates.WriteString(" AND ")
			}
		}
		frag, consumed := predicateSQL(col.Column, p, paramN)
		predicates.WriteString(frag)
		paramN += consumed
	}

	// Custom query methods exclude soft-deleted rows the same way Base's own
	// generated reads do (notDeletedClause in base.go); a derived delete
	// statement is left alone, since soft-delete conversion is DeleteByID's
	// concern, not a WHERE-clause filter.
	filterSoftDelete := meta.SoftDeleteColumn != "" && intent.Operation != queryparse.OpDelete

	switch {
	case predicates.Len() > 0 && filterSoftDelete:
		sb.WriteString(" WHERE ")
		if hasOr {
			// Parenthesize the OR-joined predicates so the soft-delete
			// filter applies to every branch, not just the last one.
			sb.WriteByte('(')
			sb.WriteString(predicates.String())
			sb.WriteByte(')')
		} else {
			sb.WriteString(predicates.String())
		}
		sb.WriteString(" AND ")
		sb.WriteString(meta.SoftDeleteColumn)
		sb.WriteString(" IS NULL")
	case predicates.Len() > 0:
		sb.WriteString(" WHERE ")
		sb.WriteString(predicates.String())
	case filterSoftDelete:
		sb.WriteString(" WHERE ")
		sb.WriteString(meta.SoftDeleteColumn)
		sb.WriteString(" IS NULL")
	}

	if len(intent.Order) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range intent.Order {
			col, ok := meta.ColumnFor(o.Field)
			if !ok {
				return "", fmt.Errorf("order field %q not found on entity %s", o.Field, meta.Type)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col.Column)
			if o.Desc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	return sb.String(), nil
}

func predicateSQL(column string, p queryparse.Predicate, paramN int) (string, int) {
	n := func(offset int) string { return "$" + strconv.Itoa(paramN+offset) }
	switch p.Keyword {
	case queryparse.KeywordEquals:
		return column + " = " + n(0), 1
	case queryparse.KeywordGreaterThan:
		return column + " > " + n(0), 1
	case queryparse.KeywordLessThan:
		return column + " < " + n(0), 1
	case queryparse.KeywordGreaterThanEqual:
		return column + " >= " + n(0), 1
	case queryparse.KeywordLessThanEqual:
		return column + " <= " + n(0), 1
	case queryparse.KeywordBetween:
		return column + " BETWEEN " + n(0) + " AND " + n(1), 2
	case queryparse.KeywordLike, queryparse.KeywordContaining, queryparse.KeywordStartingWith, queryparse.KeywordEndingWith:
		return column + " LIKE " + n(0), 1
	case queryparse.KeywordNotLike:
		return column + " NOT LIKE " + n(0), 1
	case queryparse.KeywordIsNull:
		return column + " IS NULL", 0
	case queryparse.KeywordIsNotNull:
		return column + " IS NOT NULL", 0
	case queryparse.KeywordIn:
		return column + " = ANY(" + n(0) + ")", 1
	case queryparse.KeywordNotIn:
		return column + " != ALL(" + n(0) + ")", 1
	case queryparse.KeywordTrue:
		return column + " = TRUE", 0
	case queryparse.KeywordFalse:
		return column + " = FALSE", 0
	default:
		return column + " = " + n(0), 1
	}
}

// WrapWildcard applies the bind-time wrapping a wildcard predicate requires
// (spec.md §4.4: "%v%", "v%", "%v").
func WrapWildcard(wildcard string, value string) string {
	switch wildcard {
	case "contains":
		return "%" + value + "%"
	case "prefix":
		return value + "%"
	case "suffix":
		return "%" + value
	default:
		return value
	}
}
