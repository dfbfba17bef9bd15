package server

import (
	"net/http"
)

// routeHandler matches the http.HandlerFunc shape without forcing a
// conversion at every call site.
type routeHandler func(http.ResponseWriter, *http.Request)

// routeByMethod dispatches on the request method. Anything not in the
// table, or mapped to nil, gets a 405.
func routeByMethod(w http.ResponseWriter, r *http.Request, routes map[string]routeHandler) {
	handler, ok := routes[r.Method]
	if !ok || handler == nil {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

// routeResourceCollection dispatches GET to list and POST to create.
func routeResourceCollection(w http.ResponseWriter, r *http.Request, list, create routeHandler) {
	routeByMethod(w, r, map[string]routeHandler{
		http.MethodGet:  list,
		http.MethodPost: create,
	})
}

// routeResourceItem dispatches GET to get and DELETE to remove.
func routeResourceItem(w http.ResponseWriter, r *http.Request, get, remove routeHandler) {
	routeByMethod(w, r, map[string]routeHandler{
		http.MethodGet:    get,
		http.MethodDelete: remove,
	})
}
