package module

import (
	"context"

	"feedweave/internal/platform/net/middleware"
	"feedweave/internal/services/feed/domain"
)

// Wiring is what main injects through modkit.WithPorts
type Wiring struct {
	Upstream domain.Upstream
	Auth     middleware.AuthPort
}

// Janitor closes idle sessions until ctx ends
type Janitor interface {
	Janitor(ctx context.Context)
}

// Ports holds the ports exposed by the feed module
type Ports struct {
	Sessions domain.ServicePort
	Janitor  Janitor
}
