package api

import (
	"net/http"
	"sort"
)

// Registry collects endpoints and mounts them on a ServeMux.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a registry holding eps.
func NewRegistry(eps ...Endpoint) *Registry {
	r := &Registry{}
	r.Register(eps...)
	return r
}

// Register adds endpoints. Mounting two endpoints on the same method and
// path panics in RegisterRoutes, as http.ServeMux does.
func (r *Registry) Register(eps ...Endpoint) {
	r.endpoints = append(r.endpoints, eps...)
}

// RegisterRoutes mounts every endpoint as "METHOD /path". Handlers whose
// endpoint RequiresInit are wrapped with initMiddleware.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() && initMiddleware != nil {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// Routes returns the sorted "METHOD /path" patterns of every endpoint.
func (r *Registry) Routes() []string {
	routes := make([]string, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		method, path, _ := ep.Route()
		routes = append(routes, method+" "+path)
	}
	sort.Strings(routes)
	return routes
}
