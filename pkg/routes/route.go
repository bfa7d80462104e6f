package routes

import "net/http"

// Route binds an HTTP method and path to a handler. Pattern is relative to
// the enclosing Group's prefix. An empty Method matches every method.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Full returns the ServeMux pattern for r mounted under prefix.
func (r Route) Full(prefix string) string {
	path := prefix + r.Pattern
	if path == "" {
		path = "/"
	}
	if r.Method == "" {
		return path
	}
	return r.Method + " " + path
}
