package router

import (
	"fmt"

	"github.com/gorilla/mux"
)

// validatePattern reuses gorilla/mux's own path-template compiler to catch
// a malformed pattern (mismatched braces, an empty placeholder name) at
// Register time rather than failing silently into a pattern that can never
// match a request. gorilla/mux is the teacher's declared dependency but
// went unused by its handlers; here its compiler does the one thing our
// own simple segment-splitter (compilePattern) doesn't attempt itself:
// validating the template syntax before it's trusted as a route.
func validatePattern(pattern string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("router: invalid route pattern %q: %v", pattern, p)
		}
	}()
	r := mux.NewRouter()
	route := r.NewRoute().Path(pattern)
	if routeErr := route.GetError(); routeErr != nil {
		return fmt.Errorf("router: invalid route pattern %q: %w", pattern, routeErr)
	}
	return nil
}
