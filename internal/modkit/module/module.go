// Package module defines the minimal contract for a modkit module
package module

import phttp "feedweave/internal/platform/net/http"

// Module is kept in its own package so a module can export its ports type without import knots
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
