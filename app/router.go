package app

import (
	"fmt"
	"regexp"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// isPath is the RegExp to ensure the routes make sense
var isPath = regexp.MustCompile(`^[a-z0-9_]+(/[a-z0-9_]+)*$`).MatchString

// Router allows us to register many handlers with different
// paths and then direct each message to the proper handler.
//
// Minimal interface modeled after net/http.ServeMux
type Router struct {
	routes map[string]custodia.Handler
}

var _ custodia.Registry = (*Router)(nil)
var _ custodia.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]custodia.Handler),
	}
}

// Handle adds a new Handler for the given path. This function panics if
// a handler for given path is already registered or if the path is
// invalid.
func (r *Router) Handle(path string, h custodia.Handler) {
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path: %s", path))
	}
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("re-registering route: %s", path))
	}
	r.routes[path] = h
}

// Handler returns the registered Handler for this path.
// If no path is found, returns a noSuchPathHandler.
// This allows us to bypass the nil checks everywhere.
func (r *Router) Handler(path string) custodia.Handler {
	h, ok := r.routes[path]
	if !ok {
		return noSuchPathHandler{path}
	}
	return h
}

// Check dispatches to the proper handler based on path
func (r *Router) Check(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	path := msg.Path()
	h := r.Handler(path)
	return h.Check(ctx, store, tx)
}

// Deliver dispatches to the proper handler based on path
func (r *Router) Deliver(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	path := msg.Path()
	h := r.Handler(path)
	return h.Deliver(ctx, store, tx)
}

// noSuchPathHandler always returns ErrNotFound, i.e. the message path
// does not resolve to any registered handler.
type noSuchPathHandler struct {
	path string
}

var _ custodia.Handler = noSuchPathHandler{}

func (h noSuchPathHandler) Check(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}

func (h noSuchPathHandler) Deliver(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}
