package router

import (
	"net/http"
	"slices"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Router registers method-qualified patterns on an http.ServeMux. The chain
// is applied per route, inside the mux, so middleware sees r.Pattern and
// r.PathValue of the matched route.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
}

// New returns a Router whose routes all run through chain, first element
// outermost.
func New(chain ...Middleware) *Router {
	return &Router{mux: http.NewServeMux(), chain: chain}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, mw...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, mw...)
}

func (r *Router) Put(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPut, pattern, h, mw...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, mw...)
}

// Handle registers h for method and pattern. Route middleware runs after
// the router's chain.
func (r *Router) Handle(method, pattern string, h http.Handler, mw ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.wrap(h, mw))
}

// Group shares the mux and appends mw to the chain of routes registered
// through it.
func (r *Router) Group(mw ...Middleware) *Router {
	return &Router{mux: r.mux, chain: append(slices.Clone(r.chain), mw...)}
}

// NotFound handles every request no route matched, including a known path
// with an unregistered method.
func (r *Router) NotFound(h http.HandlerFunc) {
	r.mux.Handle("/", r.wrap(h, nil))
}

func (r *Router) wrap(h http.Handler, mw []Middleware) http.Handler {
	chain := append(slices.Clone(r.chain), mw...)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
