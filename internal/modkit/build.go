package modkit

import (
	"net/http"

	"feedweave/internal/modkit/httpkit"
	pstrings "feedweave/internal/platform/strings"
)

// Built is what a module keeps from its options
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	Subrouter func(httpkit.Router) httpkit.Router
	Register  func(httpkit.Router)
}

// Option adjusts a Built; later options win
type Option func(*Built)

// WithName names the module for logs and the port registry
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts the module under prefix, normalized to a single leading slash
func WithPrefix(prefix string) Option {
	p := pstrings.MustPrefix(prefix)
	return func(b *Built) { b.Prefix = p }
}

// WithMiddlewares appends module-only middleware, applied in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands the module what it needs from main or another module
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// WithSubrouter wraps the module router before any route is attached
func WithSubrouter(fn func(httpkit.Router) httpkit.Router) Option {
	return func(b *Built) { b.Subrouter = fn }
}

// WithRegister attaches extra endpoints after the module's own
func WithRegister(fn func(httpkit.Router)) Option { return func(b *Built) { b.Register = fn } }

// Build applies opts over no-op hooks
func Build(opts ...Option) Built {
	b := Built{
		Subrouter: func(r httpkit.Router) httpkit.Router { return r },
		Register:  func(httpkit.Router) {},
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Mount attaches the module under its prefix: middleware, then the subrouter, then own routes, then extras
func (b Built) Mount(r httpkit.Router, own func(httpkit.Router)) {
	r.Route(b.Prefix, func(rr httpkit.Router) {
		for _, mw := range b.Mw {
			rr.Use(mw)
		}
		rr = b.Subrouter(rr)
		own(rr)
		b.Register(rr)
	})
}
