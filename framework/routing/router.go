// Package routing is the application pipeline the plugins configure: a chi
// mux with verb helpers, groups, prefixes and middleware stages.
package routing

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Router wraps chi.Router.
//
// Middleware must be added before the first route on the same router; chi
// panics otherwise. The host applies application and middleware plugins
// before endpoint plugins for that reason.
type Router struct {
	mux chi.Router
}

// New creates an empty Router. Unlike a plain chi mux it carries no default
// middleware: every stage is contributed by a middleware plugin.
func New() *Router {
	return &Router{mux: chi.NewRouter()}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range anyMethods {
		r.mux.Method(m, pattern, h)
	}
}

var anyMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodOptions, http.MethodHead,
}

// Handle registers h for every method on pattern.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// Mount attaches a sub-handler below pattern.
func (r *Router) Mount(pattern string, h http.Handler) { r.mux.Mount(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's path but not its
// group-local middleware.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router below pattern.
//
//	r.Prefix("/api/v1", func(api *routing.Router) { api.Get("/hello", h) })
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Use appends middleware stages to the pipeline, outermost first.
func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// Middlewares returns the number of stages registered on this router.
func (r *Router) Middlewares() int { return len(r.mux.Middlewares()) }

// ── Fallback handlers ────────────────────────────────────────────────────────

// NotFound sets the handler for unmatched paths.
func (r *Router) NotFound(h http.HandlerFunc) { r.mux.NotFound(h) }

// MethodNotAllowed sets the handler for a matched path with an unsupported
// method.
func (r *Router) MethodNotAllowed(h http.HandlerFunc) { r.mux.MethodNotAllowed(h) }

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL parameter.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Introspection ────────────────────────────────────────────────────────────

// Route is one registered method and pattern.
type Route struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Routes lists every registered route, sorted by pattern then method.
func (r *Router) Routes() ([]Route, error) {
	var out []Route
	err := chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{Method: method, Pattern: strings.ReplaceAll(route, "/*/", "/")})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Route) int {
		if c := strings.Compare(a.Pattern, b.Pattern); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out, nil
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}
