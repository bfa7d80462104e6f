package routes

import (
	"net/http"

	"github.com/JaimeStill/smartwaste/pkg/middleware"
)

// Group organizes routes under a common prefix. Middleware applies to the
// group's routes and to every child group.
type Group struct {
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", nil, group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, inherited middleware.Chain, group Group) {
	prefix := parentPrefix + group.Prefix
	chain := inherited.Extend(group.Middleware...)

	for _, route := range group.Routes {
		mux.Handle(route.Full(prefix), chain.Apply(route.Handler))
	}
	for _, child := range group.Children {
		registerGroup(mux, prefix, chain, child)
	}
}
