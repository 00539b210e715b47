// Package order provides the orderings in which a handler is adapted
// to a chain of middleware.
package order

import (
	"net/http"

	"github.com/appbaseio/migrator/middleware"
)

// Fifo adapts a handler so that a request passes through the middleware
// in the sequence in which they are given.
type Fifo struct{}

// Adapt implements middleware.Adapter.
func (f *Fifo) Adapt(h http.HandlerFunc, m ...middleware.Middleware) http.HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

var _ middleware.Adapter = (*Fifo)(nil)
