package container

import (
	"reflect"
	"sync"
)

// Scope controls how often a descriptor's constructor runs.
type Scope int

const (
	// Singleton descriptors are constructed once and cached for the
	// lifetime of the container.
	Singleton Scope = iota
	// Prototype descriptors are constructed fresh on every resolution and
	// never cached.
	Prototype
)

func (s Scope) String() string {
	if s == Prototype {
		return "prototype"
	}
	return "singleton"
}

// descriptor is the metadata record for one managed type: how to build it,
// what to call on it before handing it out and before destroying it, and
// (for singletons) the constructed instance itself. Grounded on the `bean`
// struct in the iocdi reference container, extended with the primary flag,
// scope and ordered lifecycle lists spec.md §3 requires.
type descriptor struct {
	name        string
	outType     reflect.Type
	primary     bool
	scope       Scope
	constructor reflect.Value // func(...) (T) or func(...) (T, error)
	paramNames  map[int]string
	postInit    []string
	preDestroy  []string

	// mu serializes construction: one writer, many readers, per spec.md §4.3
	// Concurrency — singleton construction is serialized per descriptor.
	mu          sync.Mutex
	constructed bool
	instance    reflect.Value
	buildErr    error
}

// isAssignableTo reports whether this descriptor's produced type can serve a
// request for t: either the exact/assignable concrete type, or an interface
// the produced type implements.
func (d *descriptor) isAssignableTo(t reflect.Type) bool {
	if d.outType == t {
		return true
	}
	if t.Kind() == reflect.Interface {
		return d.outType.Implements(t)
	}
	return d.outType.AssignableTo(t)
}

// Info is a read-only snapshot of a descriptor, exposed for diagnostics and
// tests without leaking the mutable internals.
type Info struct {
	Name    string
	Type    reflect.Type
	Primary bool
	Scope   Scope
}

func (d *descriptor) info() Info {
	return Info{Name: d.name, Type: d.outType, Primary: d.primary, Scope: d.scope}
}
