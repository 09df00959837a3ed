// Package router implements the framework's Route model and Request
// Pipeline (spec.md §4.6): an insertion-ordered, first-match-wins route
// table with `{name}` path-parameter segments, mounted behind a chi mux for
// the ambient middleware chain the teacher's cmd/server.main already wires
// (Logger, Recoverer, CORS, RequestID, RealIP, Timeout).
//
// chi's own trie is not introspectable, so the Router keeps its own []Route
// slice as ground truth, enumerable through Routes and HasRoute, and uses
// chi purely as the wire-level mux: a single catch-all chi handler (plus
// chi's NotFound and MethodNotAllowed hooks) delegates every request, for
// every HTTP verb, to the Router's own matcher.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handler is the canonical dispatch contract every registered method
// must satisfy: a method on a DI-managed controller singleton, taking the
// Request and returning a Result or an error.
type Handler func(*Request) (Result, error)

// Route is one registered (method, path pattern, handler) triple. Path
// patterns are literal segments or `{name}` placeholders.
type Route struct {
	Method  string
	Pattern string
	Name    string // diagnostic label, e.g. "ProductController.findAll"
	Handler Handler

	segments []patternSegment
}

type patternSegment struct {
	literal string
	param   string // non-empty if this segment is a {name} placeholder
}

func compilePattern(pattern string) []patternSegment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]patternSegment, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			segs = append(segs, patternSegment{param: p[1 : len(p)-1]})
		} else {
			segs = append(segs, patternSegment{literal: p})
		}
	}
	return segs
}

// Metrics is the process-scoped counter set the request pipeline updates
// (spec.md §9: "global mutable singletons map to a process-scoped state
// object passed explicitly ... with atomic counters").
type Metrics struct {
	state metricsState
}

// Router owns the route table and the security/dispatch pipeline. Routes
// are immutable after Build is called (spec.md §5 shared-resource policy).
type Router struct {
	logger  *zap.Logger
	metrics *Metrics

	routes []*Route
	built  bool

	securityCheck func(*http.Request) (Decision, error)
	mux           *chi.Mux
}

// New creates an empty Router. securityCheck runs before dispatch for every
// matched route (spec.md §4.6 step 7); pass nil to skip gating entirely.
func New(logger *zap.Logger, securityCheck func(*http.Request) (Decision, error)) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:        logger,
		metrics:       &Metrics{},
		securityCheck: securityCheck,
	}
}

// Decision is the security interceptor's verdict for one request, threaded
// back from internal/security without importing it (avoiding a cycle).
type Decision struct {
	Allowed    bool
	StatusCode int
	Message    string
	// Values carries data the security check derived from the token
	// (e.g. the subject id) through to the handler via Request.Value,
	// without the router needing to know anything about claims shapes.
	Values map[string]any
}

// Register adds a route in insertion order. Calling Register after Build
// panics: routes are immutable once the server starts serving, per spec.md
// §5. Returns an error if pattern is not a valid route template.
func (r *Router) Register(method, pattern, name string, h Handler) error {
	if r.built {
		panic("router: Register called after Build")
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}
	r.routes = append(r.routes, &Route{
		Method:   strings.ToUpper(method),
		Pattern:  pattern,
		Name:     name,
		Handler:  h,
		segments: compilePattern(pattern),
	})
	return nil
}

// MustRegister is Register for call sites (route tables built from fixed,
// compile-time-known patterns) where a template error is a programmer
// mistake, not a runtime condition.
func (r *Router) MustRegister(method, pattern, name string, h Handler) {
	if err := r.Register(method, pattern, name, h); err != nil {
		panic(err)
	}
}

// HasRoute reports whether a route for (method, pattern) is already
// registered. The CRUD generator does not call it: it decides overrides from
// the controller's method set.
func (r *Router) HasRoute(method, pattern string) bool {
	method = strings.ToUpper(method)
	for _, rt := range r.routes {
		if rt.Method == method && rt.Pattern == pattern {
			return true
		}
	}
	return false
}

// Routes returns the immutable route list, for diagnostics and tests.
func (r *Router) Routes() []*Route {
	return append([]*Route(nil), r.routes...)
}

// Metrics exposes the process-scoped counters for the /metrics endpoint.
func (r *Router) Metrics() *Metrics { return r.metrics }

// Build finalizes the route table and mounts the chi mux with the ambient
// middleware chain, matching the teacher's cmd/server.main ordering.
func (r *Router) Build(corsOptions cors.Options) http.Handler {
	r.built = true

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(corsOptions))
	mux.Use(middleware.Timeout(60 * time.Second))

	mux.NotFound(r.serve)
	mux.MethodNotAllowed(r.serve)
	mux.HandleFunc("/*", r.serve)

	r.mux = mux
	return mux
}

// match runs the first-match-wins route search of spec.md §4.6: iterate
// routes in insertion order, return the first whose method and segment
// count/literals match, extracting path parameters along the way.
func (r *Router) match(method, path string) (*Route, map[string]string, bool) {
	requestSegs := strings.Split(strings.Trim(path, "/"), "/")
	for _, rt := range r.routes {
		if rt.Method != method {
			continue
		}
		if len(rt.segments) != len(requestSegs) {
			continue
		}
		params := map[string]string{}
		matched := true
		for i, seg := range rt.segments {
			raw := requestSegs[i]
			decoded, err := url.PathUnescape(raw)
			if err != nil {
				decoded = raw
			}
			if seg.param != "" {
				params[seg.param] = decoded
				continue
			}
			if seg.literal != decoded {
				matched = false
				break
			}
		}
		if matched {
			return rt, params, true
		}
	}
	return nil, nil, false
}

// allowedMethods returns the set of methods some registered route accepts
// for path, for the 405 Allow header (spec.md §4.6 step 2).
func (r *Router) allowedMethods(path string) []string {
	requestSegs := strings.Split(strings.Trim(path, "/"), "/")
	seen := map[string]bool{}
	var out []string
	for _, rt := range r.routes {
		if len(rt.segments) != len(requestSegs) {
			continue
		}
		ok := true
		for i, seg := range rt.segments {
			if seg.param != "" {
				continue
			}
			decoded, _ := url.PathUnescape(requestSegs[i])
			if seg.literal != decoded {
				ok = false
				break
			}
		}
		if ok && !seen[rt.Method] {
			seen[rt.Method] = true
			out = append(out, rt.Method)
		}
	}
	return out
}

var bodyForbiddenMethods = map[string]bool{"GET": true, "DELETE": true, "HEAD": true, "OPTIONS": true}

// serve implements the full per-request pipeline of spec.md §4.6.
func (r *Router) serve(w http.ResponseWriter, httpReq *http.Request) {
	start := time.Now()
	method := httpReq.Method

	// EscapedPath, not Path: net/http already percent-decodes Path once, and
	// match/allowedMethods each decode their segments themselves — decoding
	// Path again would double-unescape things like a literal "%2F" in a path
	// parameter.
	path := httpReq.URL.EscapedPath()
	allowed := r.allowedMethods(path)
	route, params, found := r.match(method, path)
	if !found {
		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			writeEnvelope(w, http.StatusMethodNotAllowed, false, "method not allowed", nil, nil)
			r.metrics.recordFailure(time.Since(start))
			return
		}
		writeEnvelope(w, http.StatusNotFound, false, "route not found", nil, nil)
		r.metrics.recordFailure(time.Since(start))
		return
	}

	if bodyForbiddenMethods[method] && httpReq.ContentLength > 0 {
		writeEnvelope(w, http.StatusBadRequest, false, "request method does not accept a body", nil, nil)
		r.metrics.recordFailure(time.Since(start))
		return
	}

	var decisionValues map[string]any
	if r.securityCheck != nil {
		decision, err := r.securityCheck(httpReq)
		if err != nil {
			r.logger.Error("router: security check failed", zap.Error(err))
			writeEnvelope(w, http.StatusInternalServerError, false, "internal error", nil, nil)
			r.metrics.recordFailure(time.Since(start))
			return
		}
		if !decision.Allowed {
			writeEnvelope(w, decision.StatusCode, false, decision.Message, nil, nil)
			r.metrics.recordFailure(time.Since(start))
			return
		}
		decisionValues = decision.Values
	}

	needsBody := method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
	req, err := newRequest(httpReq, params, decisionValues)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, "malformed request", nil, nil)
		r.metrics.recordFailure(time.Since(start))
		return
	}
	if needsBody && len(req.Body) == 0 {
		writeEnvelope(w, http.StatusBadRequest, false, "request body required", nil, nil)
		r.metrics.recordFailure(time.Since(start))
		return
	}

	result, err := route.Handler(req)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			writeEnvelope(w, http.StatusBadRequest, false, ve.Error(), nil, nil)
			r.metrics.recordFailure(time.Since(start))
			return
		}
		r.logger.Error("router: handler failed", zap.String("route", route.Name), zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, false, "internal error", nil, nil)
		r.metrics.recordFailure(time.Since(start))
		return
	}

	result.writeTo(w)
	r.metrics.recordSuccess(time.Since(start))
}

// ValidationError marks a controller-thrown validation failure, converted
// to 400 at the pipeline boundary per spec.md §7's propagation policy.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any, metadata map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  success,
		"message":  message,
		"data":     data,
		"metadata": metadata,
	})
}

// contextKey avoids collisions with other packages' context keys.
type contextKey string

const requestContextKey contextKey = "goframe.request"

// WithRequest stashes r on ctx, used by handlers that need it via
// context.Context instead of the explicit parameter (rare; kept for
// compatibility with code written against context-first signatures).
func WithRequest(ctx context.Context, r *Request) context.Context {
	return context.WithValue(ctx, requestContextKey, r)
}

// FromContext retrieves a Request previously stored with WithRequest.
func FromContext(ctx context.Context) (*Request, bool) {
	r, ok := ctx.Value(requestContextKey).(*Request)
	return r, ok
}
