// Package container implements the framework's dependency-injection
// container (spec.md C1): component registration, constructor-graph
// resolution with named/primary disambiguation, singleton/prototype scope,
// and ordered lifecycle callbacks.
//
// The Java source walks the classpath at runtime and builds dynamic proxies;
// per spec.md REDESIGN FLAGS this container instead works from an explicit,
// startup-time registration table (Register calls), and resolves the
// constructor graph with reflect over plain Go constructor functions —
// the same technique as the reference iocdi/denkhaus/mwantia containers in
// the example corpus, generalized with primary/name disambiguation and
// ordered lifecycle callbacks.
package container

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Container owns bean descriptors, the name index and the type index, and
// performs all construction. It is safe for concurrent use.
type Container struct {
	logger *zap.Logger

	mu     sync.RWMutex
	byName map[string]*descriptor
	all    []*descriptor

	constructedMu sync.Mutex
	constructOrder []*descriptor // construction order, for reverse pre-destroy

	built bool
}

// New creates an empty Container. Pass the process logger so resolution and
// lifecycle errors can be reported with structured context.
func New(logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{
		logger: logger,
		byName: make(map[string]*descriptor),
	}
}

// Register declares a component via its constructor function. constructor
// must be a func returning either (T) or (T, error); T becomes the
// descriptor's produced type. Each constructor parameter is resolved
// recursively at construction time, by type unless overridden with
// ParamName.
func (c *Container) Register(constructor any, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return fmt.Errorf("%w: register after Initialize", ErrAlreadyBuilt)
	}

	cv := reflect.ValueOf(constructor)
	ct := cv.Type()
	if ct.Kind() != reflect.Func {
		return fmt.Errorf("%w: constructor must be a function, got %s", ErrInvalidProvider, ct.Kind())
	}
	if ct.NumOut() < 1 || ct.NumOut() > 2 {
		return fmt.Errorf("%w: constructor must return (T) or (T, error)", ErrInvalidProvider)
	}
	if ct.NumOut() == 2 && !ct.Out(1).Implements(errorType) {
		return fmt.Errorf("%w: second return value must be error", ErrInvalidProvider)
	}

	outType := ct.Out(0)
	d := &descriptor{
		name:        defaultName(outType),
		outType:     outType,
		scope:       Singleton,
		constructor: cv,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := validateLifecycleMethods(outType, d.postInit); err != nil {
		return err
	}
	if err := validateLifecycleMethods(outType, d.preDestroy); err != nil {
		return err
	}

	if _, exists := c.byName[d.name]; exists {
		return fmt.Errorf("container: duplicate descriptor name %q", d.name)
	}
	c.byName[d.name] = d
	c.all = append(c.all, d)
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// defaultName derives a descriptor's canonical name from its produced type
// when Register is called without WithName: the unqualified type name, with
// pointer and interface types unwrapped to their element/underlying name.
func defaultName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// validateLifecycleMethods fails startup immediately (per spec.md §4.2) if a
// declared post-init/pre-destroy method does not exist on T, or is not a
// parameterless, return-nothing method.
func validateLifecycleMethods(t reflect.Type, names []string) error {
	for _, name := range names {
		m, ok := t.MethodByName(name)
		if !ok {
			return fmt.Errorf("%w: %s has no method %q", ErrInvalidLifecycle, t, name)
		}
		// m.Func includes the receiver as the first argument.
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 0 {
			return fmt.Errorf("%w: %s.%s must take no parameters and return nothing", ErrInvalidLifecycle, t, name)
		}
	}
	return nil
}

// resolution tracks the per-call "in progress" set used for cycle detection
// (spec.md §4.3 step 7); it is created fresh for each top-level
// ResolveByType/ResolveByName call and threaded through recursive resolves.
type resolution struct {
	inProgress map[*descriptor]bool
}

// ResolveByType returns an instance satisfying t. t may be a concrete type
// or an interface.
func (c *Container) ResolveByType(t reflect.Type) (any, error) {
	v, err := c.resolveType(t, "", &resolution{inProgress: make(map[*descriptor]bool)})
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// ResolveByName returns the instance registered under the given canonical
// name.
func (c *Container) ResolveByName(name string) (any, error) {
	c.mu.RLock()
	d, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: name %q", ErrMissingBinding, name)
	}
	v, err := c.resolveDescriptor(d, &resolution{inProgress: make(map[*descriptor]bool)})
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// candidates collects every registered descriptor assignable to t.
func (c *Container) candidates(t reflect.Type) []*descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*descriptor
	for _, d := range c.all {
		if d.isAssignableTo(t) {
			out = append(out, d)
		}
	}
	return out
}

func (c *Container) resolveType(t reflect.Type, nameOverride string, r *resolution) (reflect.Value, error) {
	if nameOverride != "" {
		c.mu.RLock()
		d, ok := c.byName[nameOverride]
		c.mu.RUnlock()
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: name %q", ErrMissingBinding, nameOverride)
		}
		return c.resolveDescriptor(d, r)
	}

	cands := c.candidates(t)
	switch len(cands) {
	case 0:
		return reflect.Value{}, fmt.Errorf("%w: type %s", ErrMissingBinding, t)
	case 1:
		return c.resolveDescriptor(cands[0], r)
	default:
		var primary *descriptor
		primaryCount := 0
		for _, d := range cands {
			if d.primary {
				primary = d
				primaryCount++
			}
		}
		if primaryCount == 1 {
			return c.resolveDescriptor(primary, r)
		}
		return reflect.Value{}, fmt.Errorf("%w: type %s has %d candidates and %d marked primary", ErrAmbiguousBinding, t, len(cands), primaryCount)
	}
}

// resolveDescriptor implements the full construction algorithm of
// spec.md §4.3: cache check, cycle detection, recursive constructor
// parameter resolution, construction, singleton publish-before-post-init,
// and post-init invocation.
func (c *Container) resolveDescriptor(d *descriptor, r *resolution) (reflect.Value, error) {
	// The cycle check must run before the singleton lock below: a cycle
	// re-enters this same call chain (same goroutine, same r) while d's mu
	// is still held from the outer frame, and sync.Mutex isn't reentrant —
	// locking first would deadlock instead of ever reaching this check.
	if r.inProgress[d] {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrCyclicBinding, d.name)
	}

	if d.scope == Singleton {
		d.mu.Lock()
		if d.constructed {
			v, err := d.instance, d.buildErr
			d.mu.Unlock()
			return v, err
		}
		defer d.mu.Unlock()
	}

	r.inProgress[d] = true
	defer delete(r.inProgress, d)

	ct := d.constructor.Type()
	args := make([]reflect.Value, ct.NumIn())
	for i := 0; i < ct.NumIn(); i++ {
		paramType := ct.In(i)
		nameOverride := ""
		if d.paramNames != nil {
			nameOverride = d.paramNames[i]
		}
		v, err := c.resolveType(paramType, nameOverride, r)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("resolving constructor parameter %d of %s: %w", i, d.name, err)
		}
		args[i] = v
	}

	out := d.constructor.Call(args)
	instance := out[0]
	if len(out) == 2 && !out[1].IsNil() {
		err := out[1].Interface().(error)
		if d.scope == Singleton {
			d.constructed = true
			d.buildErr = err
		}
		return reflect.Value{}, fmt.Errorf("constructing %s: %w", d.name, err)
	}

	if d.scope == Singleton {
		// Publish into the cache before post-init so constructor-injected
		// singletons can observe themselves only via the cache, never
		// mid-construction (spec.md §4.3 step 6, §5 shared-resource policy).
		d.instance = instance
		d.constructed = true
		c.recordConstruction(d)
	}

	if err := runLifecycle(instance, d.postInit); err != nil {
		return reflect.Value{}, fmt.Errorf("post-init for %s: %w", d.name, err)
	}

	return instance, nil
}

func (c *Container) recordConstruction(d *descriptor) {
	c.constructedMu.Lock()
	c.constructOrder = append(c.constructOrder, d)
	c.constructedMu.Unlock()
}

func runLifecycle(instance reflect.Value, methods []string) error {
	for _, name := range methods {
		m := instance.MethodByName(name)
		out := m.Call(nil)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
	}
	return nil
}

// Initialize constructs the full singleton graph eagerly: every registered
// singleton descriptor is resolved once, surfacing any missing/ambiguous/
// cyclic binding or lifecycle error as a startup failure. It is idempotent.
func (c *Container) Initialize() error {
	c.mu.Lock()
	if c.built {
		c.mu.Unlock()
		return nil
	}
	c.built = true
	descriptors := append([]*descriptor(nil), c.all...)
	c.mu.Unlock()

	for _, d := range descriptors {
		if d.scope != Singleton {
			continue
		}
		if _, err := c.resolveDescriptor(d, &resolution{inProgress: make(map[*descriptor]bool)}); err != nil {
			c.logger.Error("container: failed to construct singleton", zap.String("bean", d.name), zap.Error(err))
			return err
		}
	}
	return nil
}

// Dispose invokes pre-destroy callbacks on every constructed singleton, in
// reverse construction order, exactly once per instance.
func (c *Container) Dispose() {
	c.constructedMu.Lock()
	order := append([]*descriptor(nil), c.constructOrder...)
	c.constructedMu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		d := order[i]
		d.mu.Lock()
		instance, ok := d.instance, d.constructed && d.buildErr == nil
		d.mu.Unlock()
		if !ok {
			continue
		}
		if err := runLifecycle(instance, d.preDestroy); err != nil {
			c.logger.Warn("container: pre-destroy failed", zap.String("bean", d.name), zap.Error(err))
		}
	}
}

// Descriptors returns read-only snapshots of every registered descriptor,
// for diagnostics and tests.
func (c *Container) Descriptors() []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Info, 0, len(c.all))
	for _, d := range c.all {
		out = append(out, d.info())
	}
	return out
}
