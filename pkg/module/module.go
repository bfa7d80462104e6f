// Package module mounts self-contained HTTP handlers under single-segment
// path prefixes, each with its own middleware stack.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/smartwaste/pkg/middleware"
)

// ErrInvalidPrefix is returned for prefixes that are not of the form "/name".
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module strips its prefix from incoming requests and hands them to an
// inner router wrapped in the module's middleware.
type Module struct {
	prefix     string
	router     http.Handler
	middleware *middleware.Chain
	handler    func() http.Handler
}

// New creates a Module mounted at prefix (e.g. "/api"). It panics on an
// invalid prefix since mounting happens once at startup.
func New(prefix string, router http.Handler) *Module {
	if err := ValidatePrefix(prefix); err != nil {
		panic(err)
	}

	m := &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
	m.handler = sync.OnceValue(func() http.Handler {
		return m.middleware.Apply(m.router)
	})
	return m
}

// Handler returns the inner router wrapped in the module's middleware. The
// chain is built on first use; Use must not be called after that.
func (m *Module) Handler() http.Handler {
	return m.handler()
}

// Prefix returns the module's mount point.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve dispatches req to the inner router with the prefix removed.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, stripPrefix(req, m.prefix))
}

// Use appends mw to the module's middleware stack.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.middleware.Use(mw)
}

// ValidatePrefix reports whether prefix is a single path segment with a
// leading slash.
func ValidatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case strings.Count(prefix, "/") != 1 || len(prefix) == 1:
		return fmt.Errorf("%w: %q must be a single segment", ErrInvalidPrefix, prefix)
	}
	return nil
}

func stripPrefix(req *http.Request, prefix string) *http.Request {
	path := strings.TrimPrefix(req.URL.Path, prefix)
	if path == "" {
		path = "/"
	}

	out := new(http.Request)
	*out = *req
	out.URL = new(url.URL)
	*out.URL = *req.URL
	out.URL.Path = path
	out.URL.RawPath = ""
	return out
}
