package middleware

import (
	"net/http"
	"slices"
)

// Chain is an ordered middleware stack. The first entry is the outermost
// wrapper, so it sees the request first and the response last.
type Chain []func(http.Handler) http.Handler

// New returns a Chain holding mws in order.
func New(mws ...func(http.Handler) http.Handler) *Chain {
	c := Chain(slices.Clone(mws))
	return &c
}

// Use appends mws to the end of the chain.
func (c *Chain) Use(mws ...func(http.Handler) http.Handler) {
	*c = append(*c, mws...)
}

// Extend returns a new chain with mws after the receiver's entries. The
// receiver is left unchanged.
func (c Chain) Extend(mws ...func(http.Handler) http.Handler) Chain {
	out := make(Chain, 0, len(c)+len(mws))
	return append(append(out, c...), mws...)
}

// Apply wraps h in every middleware of the chain.
func (c Chain) Apply(h http.Handler) http.Handler {
	for _, mw := range slices.Backward(c) {
		h = mw(h)
	}
	return h
}
