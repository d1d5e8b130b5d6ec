// Package module mounts the meta endpoints
package module

import (
	"time"

	modkit "feedweave/internal/modkit"
	"feedweave/internal/modkit/httpkit"

	metahttp "feedweave/internal/services/api/meta/http"
)

// Ports is what api.Mount injects through modkit.WithPorts
type Ports struct {
	UpstreamMode string
	Sessions     metahttp.Gauge
}

// Module serves health, readiness and build info
type Module struct {
	b         modkit.Built
	ports     Ports
	probes    map[string]metahttp.Probe
	startedAt time.Time
}

// New builds the meta module, the postgres pool is probed when it can ping
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)
	ports, _ := b.Ports.(Ports)

	probes := map[string]metahttp.Probe{}
	if p, ok := deps.PG.(metahttp.Probe); ok && deps.PG != nil {
		probes["pg"] = p
	}
	return &Module{b: b, ports: ports, probes: probes, startedAt: time.Now()}
}

// MountRoutes mounts /meta
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) {
		metahttp.Register(rr, metahttp.Deps{
			ServiceName:  "feedweave-api",
			StartedAt:    m.startedAt,
			UpstreamMode: m.ports.UpstreamMode,
			Probes:       m.probes,
			Sessions:     m.ports.Sessions,
		})
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
