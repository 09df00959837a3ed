package crud

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/aras-services/goframe/internal/router"
)

// Generator wires a controller/repository/Directive triple into the
// shared router.Router (spec.md §4.7). One Generator instance is reused
// across every controller the application registers.
type Generator struct {
	r *router.Router
}

// New creates a Generator bound to the application's router.
func New(r *router.Router) *Generator {
	return &Generator{r: r}
}

// Generate registers every non-suppressed CRUD route for controllerPtr
// against repoPtr under d. controllerPtr is inspected via reflection for
// overriding methods (spec.md §4.7 point 3); repoPtr must expose the
// repository.Base[T, ID] method set (FindAll, FindByID, Save, DeleteByID,
// Count, ExistsByID).
func (g *Generator) Generate(controllerPtr any, repoPtr any, d Directive) error {
	adapter, err := newRepoAdapter(repoPtr, &d)
	if err != nil {
		return err
	}
	controllerType := reflect.TypeOf(controllerPtr)

	for _, op := range allOperations {
		if suppressed(controllerType, op) {
			handler, err := overrideHandler(controllerPtr, op)
			if err != nil {
				return err
			}
			if err := g.registerRoute(controllerType, d, op, handler); err != nil {
				return err
			}
			continue
		}
		if err := g.registerOperation(controllerType, adapter, d, op); err != nil {
			return err
		}
	}
	return nil
}

// overrideHandler binds controllerPtr's exported method for op into a
// router.Handler, adapting it by reflection the same way router.Register
// would bind any other method value. suppressed already verified the
// method's signature matches router.Handler, so the interface assertion
// below always succeeds for a suppressed operation.
func overrideHandler(controllerPtr any, op Operation) (router.Handler, error) {
	name := exportedMethodName[op]
	m := reflect.ValueOf(controllerPtr).MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("crud: controller has no method %q for operation %q", name, op)
	}
	// A bound method's reflect type is the bare func literal, not the named
	// router.Handler type, so the assertion targets that literal and the
	// named type is recovered by conversion (legal: identical underlying
	// type).
	fn, ok := m.Interface().(func(*router.Request) (router.Result, error))
	if !ok {
		return nil, fmt.Errorf("crud: method %q does not match router.Handler's signature", name)
	}
	return router.Handler(fn), nil
}

// routeFor reports the method and path slot spec.md §4.7 assigns to op
// under base, shared by both the generated dispatcher and a controller's
// own override so an override lands on exactly the route it suppresses.
func routeFor(op Operation, base string) (method, path string) {
	switch op {
	case OpFindAll:
		return "GET", base
	case OpFindByID:
		return "GET", base + "/{id}"
	case OpCreate:
		return "POST", base
	case OpUpdate:
		return "PUT", base + "/{id}"
	case OpDelete:
		return "DELETE", base + "/{id}"
	case OpSearch:
		return "GET", base + "/search"
	case OpCount:
		return "GET", base + "/count"
	case OpExists:
		return "GET", base + "/exists/{id}"
	case OpCreateBatch:
		return "POST", base + "/batch"
	case OpUpdateBatch:
		return "PUT", base + "/batch"
	case OpDeleteBatch:
		return "DELETE", base + "/batch"
	default:
		return "", ""
	}
}

// registerRoute registers handler at op's route slot under controllerType's
// route name.
func (g *Generator) registerRoute(controllerType reflect.Type, d Directive, op Operation, handler router.Handler) error {
	base := strings.TrimRight(d.BasePath, "/")
	method, path := routeFor(op, base)
	if method == "" {
		return fmt.Errorf("crud: unknown operation %q", op)
	}
	return g.r.Register(method, path, routeName(controllerType, op), handler)
}

func (g *Generator) registerOperation(controllerType reflect.Type, a *repoAdapter, d Directive, op Operation) error {
	base := strings.TrimRight(d.BasePath, "/")
	name := routeName(controllerType, op)

	switch op {
	case OpFindAll:
		return g.r.Register("GET", base, name, findAllHandler(a, d))
	case OpFindByID:
		return g.r.Register("GET", base+"/{id}", name, findByIDHandler(a))
	case OpCreate:
		return g.r.Register("POST", base, name, createHandler(a))
	case OpUpdate:
		return g.r.Register("PUT", base+"/{id}", name, updateHandler(a))
	case OpDelete:
		return g.r.Register("DELETE", base+"/{id}", name, deleteHandler(a))
	case OpSearch:
		return g.r.Register("GET", base+"/search", name, searchHandler(a, d))
	case OpCount:
		return g.r.Register("GET", base+"/count", name, countHandler(a))
	case OpExists:
		return g.r.Register("GET", base+"/exists/{id}", name, existsHandler(a))
	case OpCreateBatch:
		return g.r.Register("POST", base+"/batch", name, createBatchHandler(a, d))
	case OpUpdateBatch:
		return g.r.Register("PUT", base+"/batch", name, updateBatchHandler(a, d))
	case OpDeleteBatch:
		return g.r.Register("DELETE", base+"/batch", name, deleteBatchHandler(a, d))
	default:
		return fmt.Errorf("crud: unknown operation %q", op)
	}
}

func findAllHandler(a *repoAdapter, d Directive) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		all, err := a.findAll(req.Raw.Context())
		if err != nil {
			return router.Result{}, err
		}
		if !d.Pagination {
			return router.OK(toAnySlice(all)), nil
		}

		page := req.QueryAsInt("page", 1)
		if page < 1 {
			page = 1
		}
		size := d.pageSize(req.QueryAsInt("size", 0))

		total := len(all)
		totalPages := int(math.Ceil(float64(total) / float64(size)))
		start := (page - 1) * size
		if start > total {
			start = total
		}
		end := start + size
		if end > total {
			end = total
		}

		return router.OK(toAnySlice(all[start:end])).WithMetadata(map[string]any{
			"page":       page,
			"size":       size,
			"totalItems": total,
			"totalPages": totalPages,
		}), nil
	}
}

func findByIDHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		id, err := decodeID(req.PathParam("id"), a.idType)
		if err != nil {
			return router.Result{}, &router.ValidationError{Message: err.Error()}
		}
		entity, err := a.findByID(req.Raw.Context(), id)
		if err != nil {
			return router.Result{}, err
		}
		if entity.IsNil() {
			return router.Status(404, nil).WithMessage("not found"), nil
		}
		return router.OK(entity.Interface()), nil
	}
}

func createHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		entity := a.newEntity()
		if err := json.Unmarshal(req.Body, entity.Interface()); err != nil {
			return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
		}
		if err := router.ValidateStruct(entity.Interface()); err != nil {
			return router.Result{}, err
		}
		if err := a.save(req.Raw.Context(), entity); err != nil {
			return router.Result{}, err
		}
		return router.Created(entity.Interface()), nil
	}
}

func updateHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		id, err := decodeID(req.PathParam("id"), a.idType)
		if err != nil {
			return router.Result{}, &router.ValidationError{Message: err.Error()}
		}
		existing, err := a.findByID(req.Raw.Context(), id)
		if err != nil {
			return router.Result{}, err
		}
		if existing.IsNil() {
			return router.Status(404, nil).WithMessage("not found"), nil
		}

		entity := a.newEntity()
		if err := json.Unmarshal(req.Body, entity.Interface()); err != nil {
			return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
		}
		if err := router.ValidateStruct(entity.Interface()); err != nil {
			return router.Result{}, err
		}
		a.setIDField(entity, id)
		if err := a.save(req.Raw.Context(), entity); err != nil {
			return router.Result{}, err
		}
		return router.OK(entity.Interface()), nil
	}
}

func deleteHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		id, err := decodeID(req.PathParam("id"), a.idType)
		if err != nil {
			return router.Result{}, &router.ValidationError{Message: err.Error()}
		}
		exists, err := a.existsByID(req.Raw.Context(), id)
		if err != nil {
			return router.Result{}, err
		}
		if !exists {
			return router.Status(404, nil).WithMessage("not found"), nil
		}
		if err := a.deleteByID(req.Raw.Context(), id); err != nil {
			return router.Result{}, err
		}
		return router.OK(nil).WithMessage("deleted"), nil
	}
}

func countHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		n, err := a.count(req.Raw.Context())
		if err != nil {
			return router.Result{}, err
		}
		return router.OK(map[string]int64{"count": n}), nil
	}
}

func existsHandler(a *repoAdapter) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		id, err := decodeID(req.PathParam("id"), a.idType)
		if err != nil {
			return router.Result{}, &router.ValidationError{Message: err.Error()}
		}
		exists, err := a.existsByID(req.Raw.Context(), id)
		if err != nil {
			return router.Result{}, err
		}
		return router.OK(map[string]bool{"exists": exists}), nil
	}
}

// searchHandler applies a case-insensitive contains filter across the
// directive's searchable fields using matching query parameters; an
// unmatched `q` parameter falls back to matching any stringifiable field
// (spec.md §4.7 search row).
func searchHandler(a *repoAdapter, d Directive) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		all, err := a.findAll(req.Raw.Context())
		if err != nil {
			return router.Result{}, err
		}

		var filters []func(reflect.Value) bool
		for _, field := range d.SearchableFields {
			v := req.Query(field)
			if v == "" {
				continue
			}
			field := field
			needle := strings.ToLower(v)
			filters = append(filters, func(entity reflect.Value) bool {
				f, ok := a.fieldByName(entity, capitalize(field))
				if !ok {
					return false
				}
				return strings.Contains(strings.ToLower(fmt.Sprint(f.Interface())), needle)
			})
		}

		if len(filters) == 0 {
			if q := req.Query("q"); q != "" {
				needle := strings.ToLower(q)
				filters = append(filters, func(entity reflect.Value) bool {
					elem := entity.Elem()
					for i := 0; i < elem.NumField(); i++ {
						if strings.Contains(strings.ToLower(fmt.Sprint(elem.Field(i).Interface())), needle) {
							return true
						}
					}
					return false
				})
			}
		}

		var matched []reflect.Value
		for _, entity := range all {
			ok := true
			for _, f := range filters {
				if !f(entity) {
					ok = false
					break
				}
			}
			if ok {
				matched = append(matched, entity)
			}
		}
		return router.OK(toAnySlice(matched)), nil
	}
}

// batchResult is one element's outcome within a batch operation, reported
// back in the envelope's metadata so callers can see per-item failures
// without the whole request failing (spec.md §4.7 batch rows: "process
// each, collecting errors" / "skip missing, report errors" / "continue on
// per-id errors").
type batchResult struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
}

func createBatchHandler(a *repoAdapter, d Directive) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		var payload struct {
			Entities []json.RawMessage `json:"entities"`
		}
		if err := json.Unmarshal(req.Body, &payload); err != nil {
			return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
		}
		if len(payload.Entities) > d.batchLimit() {
			return router.Result{}, &router.ValidationError{Message: fmt.Sprintf("batch size %d exceeds limit %d", len(payload.Entities), d.batchLimit())}
		}

		var created []any
		var errs []batchResult
		for i, raw := range payload.Entities {
			entity := a.newEntity()
			if err := json.Unmarshal(raw, entity.Interface()); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			if err := router.ValidateStruct(entity.Interface()); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			if err := a.save(req.Raw.Context(), entity); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			created = append(created, entity.Interface())
		}

		return router.Created(created).WithMetadata(map[string]any{"errors": errs}), nil
	}
}

func updateBatchHandler(a *repoAdapter, d Directive) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		var payload struct {
			Entities []json.RawMessage `json:"entities"`
		}
		if err := json.Unmarshal(req.Body, &payload); err != nil {
			return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
		}
		if len(payload.Entities) > d.batchLimit() {
			return router.Result{}, &router.ValidationError{Message: fmt.Sprintf("batch size %d exceeds limit %d", len(payload.Entities), d.batchLimit())}
		}

		var updated []any
		var errs []batchResult
		for i, raw := range payload.Entities {
			entity := a.newEntity()
			if err := json.Unmarshal(raw, entity.Interface()); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			if err := router.ValidateStruct(entity.Interface()); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			id := a.idField(entity)
			exists, err := a.existsByID(req.Raw.Context(), id)
			if err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			if !exists {
				errs = append(errs, batchResult{Index: i, Error: "not found"})
				continue
			}
			if err := a.save(req.Raw.Context(), entity); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			updated = append(updated, entity.Interface())
		}

		return router.OK(updated).WithMetadata(map[string]any{"errors": errs}), nil
	}
}

func deleteBatchHandler(a *repoAdapter, d Directive) router.Handler {
	return func(req *router.Request) (router.Result, error) {
		var payload struct {
			IDs []string `json:"ids"`
		}
		if err := json.Unmarshal(req.Body, &payload); err != nil {
			return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
		}
		if len(payload.IDs) > d.batchLimit() {
			return router.Result{}, &router.ValidationError{Message: fmt.Sprintf("batch size %d exceeds limit %d", len(payload.IDs), d.batchLimit())}
		}

		deleted := 0
		var errs []batchResult
		for i, raw := range payload.IDs {
			id, err := decodeID(raw, a.idType)
			if err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			if err := a.deleteByID(req.Raw.Context(), id); err != nil {
				errs = append(errs, batchResult{Index: i, Error: err.Error()})
				continue
			}
			deleted++
		}

		return router.OK(map[string]int{"deleted": deleted}).WithMetadata(map[string]any{"errors": errs}), nil
	}
}

// capitalize upper-cases a field name's first rune, the mapping from a
// directive's lowerCamel SearchableFields entries to Go's exported struct
// field naming convention.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toAnySlice(values []reflect.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}
	return out
}
