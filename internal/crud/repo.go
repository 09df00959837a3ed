package crud

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aras-services/goframe/internal/repository"
)

// repoAdapter calls a wired repository's base operations (FindAll,
// FindByID, Save, DeleteByID, Count, ExistsByID) through reflection, the
// same technique internal/repository's Synthesizer uses to install custom
// methods: Go generics are monomorphized at compile time, so a bound
// method obtained via reflect.Value.MethodByName on a repository.Base[T,
// ID] embedder is a perfectly ordinary, directly callable function value —
// no type parameter needs to cross the reflection boundary.
type repoAdapter struct {
	value      reflect.Value
	entityType reflect.Type // struct type, not pointer
	idType     reflect.Type
	meta       *repository.EntityMeta
}

func newRepoAdapter(repoPtr any, d *Directive) (*repoAdapter, error) {
	v := reflect.ValueOf(repoPtr)
	if v.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("crud: repository must be a pointer, got %T", repoPtr)
	}

	entityType := d.EntityType
	if entityType == nil {
		m := v.MethodByName("FindAll")
		if !m.IsValid() {
			return nil, fmt.Errorf("crud: repository %T has no FindAll method", repoPtr)
		}
		out := m.Type().Out(0) // []*T
		entityType = out.Elem().Elem()
	}

	idType := d.IDType
	if idType == nil {
		m := v.MethodByName("FindByID")
		if m.IsValid() && m.Type().NumIn() == 2 {
			idType = m.Type().In(1)
		} else {
			idType = reflect.TypeOf(int64(0))
		}
	}

	meta := repository.Describe(entityType)
	return &repoAdapter{value: v, entityType: entityType, idType: idType, meta: meta}, nil
}

func (r *repoAdapter) newEntity() reflect.Value {
	return reflect.New(r.entityType)
}

func (r *repoAdapter) findAll(ctx context.Context) ([]reflect.Value, error) {
	out := r.value.MethodByName("FindAll").Call([]reflect.Value{reflect.ValueOf(ctx)})
	if err, _ := out[1].Interface().(error); err != nil {
		return nil, err
	}
	slice := out[0]
	result := make([]reflect.Value, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		result[i] = slice.Index(i)
	}
	return result, nil
}

func (r *repoAdapter) findByID(ctx context.Context, id reflect.Value) (reflect.Value, error) {
	out := r.value.MethodByName("FindByID").Call([]reflect.Value{reflect.ValueOf(ctx), id})
	if err, _ := out[1].Interface().(error); err != nil {
		return reflect.Value{}, err
	}
	return out[0], nil
}

func (r *repoAdapter) save(ctx context.Context, entity reflect.Value) error {
	out := r.value.MethodByName("Save").Call([]reflect.Value{reflect.ValueOf(ctx), entity})
	if err, _ := out[0].Interface().(error); err != nil {
		return err
	}
	return nil
}

func (r *repoAdapter) deleteByID(ctx context.Context, id reflect.Value) error {
	out := r.value.MethodByName("DeleteByID").Call([]reflect.Value{reflect.ValueOf(ctx), id})
	if err, _ := out[0].Interface().(error); err != nil {
		return err
	}
	return nil
}

func (r *repoAdapter) count(ctx context.Context) (int64, error) {
	out := r.value.MethodByName("Count").Call([]reflect.Value{reflect.ValueOf(ctx)})
	if err, _ := out[1].Interface().(error); err != nil {
		return 0, err
	}
	return out[0].Int(), nil
}

func (r *repoAdapter) existsByID(ctx context.Context, id reflect.Value) (bool, error) {
	out := r.value.MethodByName("ExistsByID").Call([]reflect.Value{reflect.ValueOf(ctx), id})
	if err, _ := out[1].Interface().(error); err != nil {
		return false, err
	}
	return out[0].Bool(), nil
}

// idField reads the id field off an entity pointer, using the entity
// metadata internal/repository already derived for this type (the same
// `pk:"true"`/name-"id" convention Describe reflects on), so the generator
// never needs its own copy of that tag-scanning logic.
func (r *repoAdapter) idField(entity reflect.Value) reflect.Value {
	return entity.Elem().Field(r.meta.Columns[r.meta.IDIdx].FieldIdx)
}

// setIDField forces an entity's id field to value, used by update to pin
// the path id onto the decoded body per spec.md §4.7's update row:
// "force id to the path id".
func (r *repoAdapter) setIDField(entity reflect.Value, value reflect.Value) {
	entity.Elem().Field(r.meta.Columns[r.meta.IDIdx].FieldIdx).Set(value)
}

// fieldByName returns an entity's field value by its Go struct field name
// (not its db column name), matched case-insensitively, used by search's
// per-SearchableFields filters.
func (r *repoAdapter) fieldByName(entity reflect.Value, name string) (reflect.Value, bool) {
	f := entity.Elem().FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
	if !f.IsValid() {
		return reflect.Value{}, false
	}
	return f, true
}
