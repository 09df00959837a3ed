// Package scan is the Classpath Scanner component (spec.md §4.1), redesigned
// per the scanner's REDESIGN FLAG: Go has no annotations to reflect over, so
// instead of walking every type under a package looking for markers, a
// bootstrap file calls Registry.RegisterComponent/RegisterEntity/
// RegisterRepository directly (the "generated/opt-in registration DSL" the
// flag calls for), and Registry yields exactly the three streams §4.1
// describes: component types, entity types, repository interface types.
package scan

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/aras-services/goframe/internal/repository"
)

// defaultRoots is the scanner's fallback list of common root package names,
// consulted when DetectRoot can't identify one from the call stack.
var defaultRoots = []string{"cmd", "internal", "app", "pkg"}

// ComponentOptions mirrors the bean descriptor markers §4.2 derives from
// annotations: explicit fields stand in for the name/primary/scope markers
// Go has no syntax for.
type ComponentOptions struct {
	Name      string
	Primary   bool
	Prototype bool
}

// ComponentEntry pairs a registered component type with its options.
type ComponentEntry struct {
	Type    reflect.Type
	Options ComponentOptions
}

// RepositoryEntry pairs a repository constructor with the entity type it
// repositories over, the association the Synthesizer's Wire needs and a
// bare list of types can't carry on its own.
type RepositoryEntry struct {
	New        func() any
	EntityType reflect.Type
}

// Registry accumulates the three scan output streams. Safe for concurrent
// registration; registration is idempotent per type, matching the
// scanner's "Scanning is idempotent" policy.
type Registry struct {
	mu sync.Mutex

	components   []ComponentEntry
	componentSet map[reflect.Type]bool

	entities  []reflect.Type
	entitySet map[reflect.Type]bool

	repositories []RepositoryEntry
	repoSet      map[reflect.Type]bool

	warnings []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		componentSet: make(map[reflect.Type]bool),
		entitySet:    make(map[reflect.Type]bool),
		repoSet:      make(map[reflect.Type]bool),
	}
}

// RegisterComponent records t as a component candidate for the DI container.
func (r *Registry) RegisterComponent(t reflect.Type, opts ComponentOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.componentSet[t] {
		return
	}
	r.componentSet[t] = true
	r.components = append(r.components, ComponentEntry{Type: t, Options: opts})
}

// RegisterEntity records t as an ORM entity candidate for the repository
// synthesizer.
func (r *Registry) RegisterEntity(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entitySet[t] {
		return
	}
	r.entitySet[t] = true
	r.entities = append(r.entities, t)
}

// RegisterRepository records newRepo as a repository candidate bound to
// entityType. Per §4.1's policy — "classes with unresolved transitive
// references are skipped with a warning, never fatal" — a candidate whose
// struct doesn't embed repository.Base (so the Synthesizer could never wire
// it) is recorded as a warning and dropped rather than rejected outright.
func (r *Registry) RegisterRepository(newRepo func() any, entityType reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample := newRepo()
	rv := reflect.ValueOf(sample)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		r.warnings = append(r.warnings, fmt.Sprintf("scan: %T is not a pointer to a struct, skipped", sample))
		return
	}
	t := rv.Elem().Type()
	if !embedsBinder(t) {
		r.warnings = append(r.warnings, fmt.Sprintf("scan: %s does not embed repository.Base, skipped", t))
		return
	}
	if r.repoSet[t] {
		return
	}
	r.repoSet[t] = true
	r.repositories = append(r.repositories, RepositoryEntry{New: newRepo, EntityType: entityType})
}

var binderType = reflect.TypeOf((*repository.Binder)(nil)).Elem()

// embedsBinder reports whether t has an anonymous field whose pointer
// implements repository.Binder, i.e. an embedded repository.Base[T, ID].
func embedsBinder(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if reflect.PtrTo(f.Type).Implements(binderType) {
			return true
		}
	}
	return false
}

// Components returns every registered component candidate, in registration
// order.
func (r *Registry) Components() []ComponentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ComponentEntry, len(r.components))
	copy(out, r.components)
	return out
}

// Entities returns every registered entity type, in registration order.
func (r *Registry) Entities() []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reflect.Type, len(r.entities))
	copy(out, r.entities)
	return out
}

// Repositories returns every registered repository candidate that passed
// the embedding check, in registration order.
func (r *Registry) Repositories() []RepositoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RepositoryEntry, len(r.repositories))
	copy(out, r.repositories)
	return out
}

// Warnings returns every skipped-candidate warning recorded so far. Never
// fatal, per the scanner's policy — callers log these, they don't abort on
// them.
func (r *Registry) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// DetectRoot makes a best-effort guess at the application's root package by
// inspecting the call stack skip frames up, falling back to the first of
// DefaultRoots when the stack can't be resolved.
func DetectRoot(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return defaultRoots[0]
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return defaultRoots[0]
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return defaultRoots[0]
	}
	return name
}

// DefaultRoots returns the scanner's fallback list of common root package
// names, consulted when DetectRoot can't identify one.
func DefaultRoots() []string {
	out := make([]string, len(defaultRoots))
	copy(out, defaultRoots)
	return out
}
