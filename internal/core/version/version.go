// Package version reports build information stamped at link time
package version

import "runtime"

// BuildInfo holds version information about the service build
type BuildInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// Info returns the build information
// stamp with -ldflags "-X feedweave/internal/core/version.version=v0.1.0 -X feedweave/internal/core/version.commit=abcd"
func Info() BuildInfo {
	return BuildInfo{
		Service:   "feedweave-api",
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
