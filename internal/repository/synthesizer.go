package repository

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/aras-services/goframe/internal/orm"
)

// Binder is implemented by Base[T, ID]; the synthesizer locates the
// embedded Base field on a repository struct through this interface and
// wires in the adapter and entity metadata, since the embedding itself
// hides Base's exported method set behind the declaring struct's own type.
type Binder interface {
	Bind(adapter orm.Adapter, meta *EntityMeta)
}

// MethodDirective supplies a Directive for one exported function field by
// name, overriding method-name parsing for that field (spec.md §4.5 step
// 2's query-directive annotation, expressed here as an explicit map since
// Go has no method annotations).
type MethodDirective map[string]Directive

// Synthesizer builds dynamic implementations of repository structs: it
// binds each embedded Base and, for every other exported function-typed
// field, derives a Plan (from a MethodDirective entry or by parsing the
// field's name) and installs a closure that executes it against the ORM
// adapter.
type Synthesizer struct {
	adapter orm.Adapter

	mu    sync.Mutex
	wired map[reflect.Type]bool
}

// NewSynthesizer creates a Synthesizer bound to the given ORM adapter.
func NewSynthesizer(adapter orm.Adapter) *Synthesizer {
	return &Synthesizer{adapter: adapter, wired: make(map[reflect.Type]bool)}
}

// Wire populates repoPtr's embedded Base and every declared function field.
// repoPtr must be a pointer to a struct embedding Base[T, ID] anonymously.
// entityType is the entity type T; directives supplies any query-directive
// overrides, keyed by field name. Wire fails startup (returns an error) the
// moment any field's name fails to parse and carries no directive — the
// *unbindable method* failure of spec.md §4.5 step 2.
func (s *Synthesizer) Wire(repoPtr any, entityType reflect.Type, directives MethodDirective) error {
	rv := reflect.ValueOf(repoPtr)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("repository: Wire requires a pointer to a struct, got %T", repoPtr)
	}
	elem := rv.Elem()
	t := elem.Type()

	s.mu.Lock()
	alreadyWired := s.wired[t]
	s.mu.Unlock()
	if alreadyWired {
		return nil
	}

	meta := Describe(entityType)

	binder, err := findBinder(elem)
	if err != nil {
		return err
	}
	binder.Bind(s.adapter, meta)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue
		}
		fv := elem.Field(i)
		if fv.Kind() != reflect.Func || !fv.CanSet() {
			continue
		}
		if err := s.wireMethod(fv, field, meta, directives); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.wired[t] = true
	s.mu.Unlock()
	return nil
}

// findBinder walks the struct's anonymous fields to find the embedded
// Base[T, ID], addressed through the Binder interface.
func findBinder(elem reflect.Value) (Binder, error) {
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).Anonymous {
			continue
		}
		fv := elem.Field(i)
		if fv.CanAddr() {
			if binder, ok := fv.Addr().Interface().(Binder); ok {
				return binder, nil
			}
		}
	}
	return nil, fmt.Errorf("repository: struct %s does not embed repository.Base[T, ID]", t)
}

// wireMethod builds a Plan for one declared function field and installs a
// reflect.MakeFunc closure that executes it.
func (s *Synthesizer) wireMethod(fv reflect.Value, field reflect.StructField, meta *EntityMeta, directives MethodDirective) error {
	fnType := fv.Type()
	returnsList, returnsOptional := classifyReturn(fnType)

	var directive *Directive
	if d, ok := directives[field.Name]; ok {
		directive = &d
	}

	plan, err := BuildPlan(field.Name, meta, directive, returnsList, returnsOptional)
	if err != nil {
		return err
	}

	adapter := s.adapter
	impl := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		return executePlan(adapter, meta, plan, fnType, args)
	})
	fv.Set(impl)
	return nil
}

// classifyReturn inspects a method's declared return type to decide the
// default shape when the plan is derived from a parsed Intent whose
// operation is `find` (find-by-id is optional, a bare find is a list).
func classifyReturn(fnType reflect.Type) (returnsList, returnsOptional bool) {
	if fnType.NumOut() == 0 {
		return false, false
	}
	out := fnType.Out(0)
	if out.Kind() == reflect.Slice {
		return true, false
	}
	if out.Kind() == reflect.Ptr {
		return false, true
	}
	return false, false
}

// executePlan runs a Plan's SQL against a fresh transaction and shapes the
// result to fnType's first return value, per spec.md §4.5 "Execution of a
// planned call". The second return value, if present, is always the error.
func executePlan(adapter orm.Adapter, meta *EntityMeta, plan *Plan, fnType reflect.Type, args []reflect.Value) []reflect.Value {
	ctx := extractContext(args)
	bindArgs := extractBindArgs(args)

	zero := reflect.Zero(fnType.Out(0))
	errType := errorType()

	fail := func(err error) []reflect.Value {
		out := []reflect.Value{zero}
		if fnType.NumOut() == 2 {
			out = append(out, reflect.ValueOf(err).Convert(errType))
		}
		return out
	}

	sess, err := adapter.Open(ctx)
	if err != nil {
		return fail(fmt.Errorf("repository: opening session: %w", err))
	}
	defer sess.Close()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fail(fmt.Errorf("repository: beginning transaction: %w", err))
	}

	result, shapeErr := runShaped(ctx, tx, meta, plan, fnType, bindArgs)
	if shapeErr != nil {
		_ = tx.Rollback(ctx)
		return fail(fmt.Errorf("repository failure: %w", shapeErr))
	}
	if err := tx.Commit(ctx); err != nil {
		return fail(fmt.Errorf("repository: commit: %w", err))
	}

	out := []reflect.Value{result}
	if fnType.NumOut() == 2 {
		out = append(out, reflect.Zero(errType))
	}
	return out
}

func errorType() reflect.Type {
	return reflect.TypeOf((*error)(nil)).Elem()
}

func extractContext(args []reflect.Value) context.Context {
	if len(args) > 0 && args[0].Type() == reflect.TypeOf((*context.Context)(nil)).Elem() {
		return args[0].Interface().(context.Context)
	}
	return context.Background()
}

func extractBindArgs(args []reflect.Value) []reflect.Value {
	if len(args) > 0 && args[0].Type() == reflect.TypeOf((*context.Context)(nil)).Elem() {
		return args[1:]
	}
	return args
}

// runShaped executes plan.SQL against tx and converts the result into a
// reflect.Value matching fnType.Out(0), per the shape table in spec.md
// §4.5.
func runShaped(ctx context.Context, tx orm.Tx, meta *EntityMeta, plan *Plan, fnType reflect.Type, bindArgs []reflect.Value) (reflect.Value, error) {
	boundArgs := make([]any, len(bindArgs))
	for i, a := range bindArgs {
		v := a.Interface()
		if wildcard, ok := plan.Wildcards[i]; ok {
			if s, ok := v.(string); ok {
				v = WrapWildcard(wildcard, s)
			}
		}
		boundArgs[i] = v
	}

	outType := fnType.Out(0)

	switch plan.Shape {
	case ShapeAffectedRows:
		n, err := tx.Exec(ctx, plan.SQL, boundArgs...)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(outType), nil

	case ShapeCount:
		var count int64
		if err := tx.QueryRow(ctx, plan.SQL, boundArgs...).Scan(&count); err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(count).Convert(outType), nil

	case ShapeExists:
		var count int64
		if err := tx.QueryRow(ctx, plan.SQL, boundArgs...).Scan(&count); err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(count > 0), nil

	case ShapeOptional:
		row := tx.QueryRow(ctx, plan.SQL, boundArgs...)
		entity, err := scanEntityInto(row, meta, outType.Elem())
		if err != nil {
			if orm.IsNoRows(err) {
				return reflect.Zero(outType), nil
			}
			return reflect.Value{}, err
		}
		return entity, nil

	default: // ShapeList
		rows, err := tx.Query(ctx, plan.SQL, boundArgs...)
		if err != nil {
			return reflect.Value{}, err
		}
		defer rows.Close()

		// outType is []*T; scanEntityInto already returns a *T (a pointer),
		// so the struct type it needs is the slice element with one layer
		// of pointer indirection stripped.
		structType := outType.Elem()
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		slice := reflect.MakeSlice(outType, 0, 0)
		for rows.Next() {
			entity, err := scanEntityInto(rows, meta, structType)
			if err != nil {
				return reflect.Value{}, err
			}
			slice = reflect.Append(slice, entity)
		}
		if err := rows.Err(); err != nil {
			return reflect.Value{}, err
		}
		return slice, nil
	}
}

// scanEntityInto scans one row into a freshly allocated *elemType (elemType
// is the slice/pointer element, e.g. entity.User), returning the pointer
// value so it slots directly into []*T or *T return shapes.
func scanEntityInto(row orm.Row, meta *EntityMeta, elemType reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(elemType)
	dest := make([]any, len(meta.Columns))
	for i, c := range meta.Columns {
		dest[i] = ptr.Elem().Field(c.FieldIdx).Addr().Interface()
	}
	if err := row.Scan(dest...); err != nil {
		return reflect.Value{}, err
	}
	return ptr, nil
}
