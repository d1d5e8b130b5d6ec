// Package modkit builds API modules from shared deps and options
package modkit

import (
	"feedweave/internal/modkit/repokit"
	"feedweave/internal/platform/config"
	"feedweave/internal/platform/logger"
)

// Deps is what every module receives from api.Mount
type Deps struct {
	// Log is the service logger, nil falls back to the root logger
	Log *logger.Logger
	Cfg config.Conf
	// PG is nil unless the service runs against the postgres upstream
	PG repokit.TxRunner
}

// Named returns the module's logger tagged with component
func (d Deps) Named(component string) *logger.Logger {
	if d.Log == nil {
		return logger.Named(component)
	}
	l := d.Log.With().Str("component", component).Logger()
	return &l
}
