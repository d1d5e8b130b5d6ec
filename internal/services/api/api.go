// Package api provides the HTTP API for the application
package api

import (
	"time"

	"feedweave/internal/platform/config"
	"feedweave/internal/platform/logger"
	phttp "feedweave/internal/platform/net/http"
	"feedweave/internal/platform/net/middleware"
	"feedweave/internal/platform/store"

	"feedweave/internal/modkit"
	"feedweave/internal/modkit/httpkit"
	"feedweave/internal/modkit/module"
	"feedweave/internal/modkit/swaggerkit"

	metahttp "feedweave/internal/services/api/meta/http"
	metamod "feedweave/internal/services/api/meta/module"
	"feedweave/internal/services/feed/domain"
	feedmod "feedweave/internal/services/feed/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Upstream       domain.Upstream
	UpstreamMode   string
	Auth           middleware.AuthPort
	CORSOrigins    []string
	SlowRequest    time.Duration
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
// module ports are registered by name, main looks up the feed janitor with module.PortsAs
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{Cfg: opt.Config, Log: opt.Logger}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
	}

	feed := feedmod.New(deps, feedmod.FromConfig(deps.Cfg), modkit.WithPorts(feedmod.Wiring{
		Upstream: opt.Upstream,
		Auth:     opt.Auth,
	}))
	meta := metamod.New(deps, modkit.WithPorts(metamod.Ports{
		UpstreamMode: opt.UpstreamMode,
		Sessions:     module.MustPortsOf[metahttp.Gauge](feed),
	}))
	mods := []modkit.Module{meta, feed}

	// Swagger + profiler
	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(httpkit.StackOptions{CORSOrigins: opt.CORSOrigins, SlowRequest: opt.SlowRequest}), func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its prefix
			m.MountRoutes(api)
		}
	})
	if opt.Logger != nil {
		opt.Logger.Info().Strs("modules", module.Names()).Str("upstream", opt.UpstreamMode).Msg("api mounted")
	}
}
