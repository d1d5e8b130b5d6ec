// Package module wires feed sessions into the API using modkit
package module

import (
	"context"
	"sync"

	modkit "feedweave/internal/modkit"
	"feedweave/internal/modkit/httpkit"
	"feedweave/internal/modkit/swaggerkit"
	feedhttp "feedweave/internal/services/feed/http"
	"feedweave/internal/services/feed/service"
	"feedweave/internal/services/feed/stream"
)

// Module implements the feed module
type Module struct {
	b     modkit.Built
	opts  Options
	wire  Wiring
	svc   *service.Svc
	hub   *stream.Hub
	ports Ports
}

// New constructs the feed module, the upstream arrives through modkit.WithPorts(Wiring{...})
func New(deps modkit.Deps, opts Options, mopts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("feed"), modkit.WithPrefix("/feed")}, mopts...)...)
	wire, _ := b.Ports.(Wiring)
	if wire.Upstream == nil {
		panic("feed module: Wiring.Upstream is required")
	}

	log := deps.Named("feed")
	hub := stream.NewHub()
	svc := service.New(wire.Upstream, feedhttp.NewPublisher(hub, log), opts.ServiceConfig(), service.WithLogger(log))

	docsOnce.Do(registerDocs)

	m := &Module{b: b, opts: opts, wire: wire, svc: svc, hub: hub}
	m.ports = Ports{Sessions: svc, Janitor: m}
	return m
}

var docsOnce sync.Once

// registerDocs publishes the card type enum the snapshot entries use
func registerDocs() {
	types := feedhttp.CardTypes()
	enum := make([]any, len(types))
	for i, t := range types {
		enum[i] = string(t)
	}
	swaggerkit.Register(swaggerkit.Schema("CardType", map[string]any{"type": "string", "enum": enum}))
}

// MountRoutes mounts session routes behind bearer auth
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) {
		httpkit.Protected(rr, m.wire.Auth, func(pr httpkit.Router) {
			feedhttp.Register(pr, m.svc, feedhttp.Stream{Hub: m.hub, Upgrader: stream.Upgrader(m.opts.StreamOrigins)})
		})
	})
}

// Janitor sweeps idle sessions and closes the rest when ctx ends
func (m *Module) Janitor(ctx context.Context) { m.svc.Run(ctx, m.opts.SweepEvery) }

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
