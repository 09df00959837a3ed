package container

// Option configures a descriptor at Register time. Options replace the
// Java source's annotation scanning (name/primary/scope/lifecycle markers)
// with explicit registration calls, per spec.md REDESIGN FLAGS.
type Option func(*descriptor)

// WithName sets the descriptor's canonical name. Without it, the name is
// derived from the produced type's short name.
func WithName(name string) Option {
	return func(d *descriptor) { d.name = name }
}

// Primary marks this descriptor as the tie-breaker when multiple
// descriptors are assignable to a requested type.
func Primary() Option {
	return func(d *descriptor) { d.primary = true }
}

// PrototypeScope marks the descriptor as prototype-scoped: a fresh instance
// is constructed on every resolution and never cached.
func PrototypeScope() Option {
	return func(d *descriptor) { d.scope = Prototype }
}

// PostInitMethod registers a parameterless, no-return-value method to run,
// in the order declared, immediately after construction and (for
// singletons) after the instance has been published into the cache.
func PostInitMethod(name string) Option {
	return func(d *descriptor) { d.postInit = append(d.postInit, name) }
}

// PreDestroyMethod registers a parameterless, no-return-value method to run
// during Dispose, in reverse construction order across descriptors.
func PreDestroyMethod(name string) Option {
	return func(d *descriptor) { d.preDestroy = append(d.preDestroy, name) }
}

// ParamName overrides name-based resolution for the constructor parameter at
// the given zero-based index: instead of resolving that parameter by type,
// the container resolves it by canonical name.
func ParamName(index int, name string) Option {
	return func(d *descriptor) {
		if d.paramNames == nil {
			d.paramNames = make(map[int]string)
		}
		d.paramNames[index] = name
	}
}
