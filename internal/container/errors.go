package container

import "errors"

// Resolution failures. Ambiguous, missing and cyclic bindings are always
// startup-phase failures per spec.md §7 — they are never expected to surface
// once Initialize has returned successfully.
var (
	ErrMissingBinding   = errors.New("container: missing binding")
	ErrAmbiguousBinding = errors.New("container: ambiguous binding")
	ErrCyclicBinding    = errors.New("container: cyclic binding")
	ErrInvalidLifecycle = errors.New("container: invalid lifecycle method")
	ErrInvalidProvider  = errors.New("container: invalid provider function")
	ErrAlreadyBuilt     = errors.New("container: already initialized")
)
