// Package http provides meta endpoints
package http

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"feedweave/internal/core/version"
	"feedweave/internal/modkit/httpkit"
)

// Probe reports whether one dependency can serve traffic
type Probe interface {
	Ping(context.Context) error
}

// Gauge counts live feed sessions
type Gauge interface {
	Len() int
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName  string
	StartedAt    time.Time
	UpstreamMode string
	// Probes are checked in order by /ready, a nil entry is reported as skipped
	Probes   map[string]Probe
	Sessions Gauge
	Now      func() time.Time
	Timeout  time.Duration
}

const (
	checkOK      = "ok"
	checkFail    = "fail"
	checkSkipped = "skipped"
)

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

type handlers struct {
	deps Deps
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"feedweave-api"`
	Now     string `json:"now"     example:"2026-03-01T09:30:00Z"`
}

// ReadyCheck is the outcome of one probe
type ReadyCheck struct {
	Name    string `json:"name"              example:"pg"`
	Status  string `json:"status"            example:"ok"`
	Latency int64  `json:"latency_ms"        example:"3"`
	Error   string `json:"error,omitempty"   example:"connection refused"`
}

// ReadyResponse is ok only when every configured probe answered
type ReadyResponse struct {
	Status   string       `json:"status"   example:"ok"`
	Upstream string       `json:"upstream" example:"http"`
	Checks   []ReadyCheck `json:"checks"`
}

// ServiceResponse describes the running process
type ServiceResponse struct {
	Name         string `json:"name"          example:"feedweave-api"`
	Started      string `json:"started"       example:"2026-03-01T09:00:00Z"`
	Uptime       int64  `json:"uptime"        example:"1800"`
	Upstream     string `json:"upstream"      example:"pg"`
	OpenSessions int    `json:"open_sessions" example:"12"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.deps.ServiceName, Now: h.stamp(h.deps.Now())}, nil
}

// @Summary Readiness with dependency probes
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	out := ReadyResponse{Status: checkOK, Upstream: h.deps.UpstreamMode, Checks: []ReadyCheck{}}
	for _, name := range slices.Sorted(maps.Keys(h.deps.Probes)) {
		c := h.probe(r.Context(), name, h.deps.Probes[name])
		if c.Status == checkFail {
			out.Status = checkFail
		}
		out.Checks = append(out.Checks, c)
	}
	return out, nil
}

func (h *handlers) probe(ctx context.Context, name string, p Probe) ReadyCheck {
	if p == nil {
		return ReadyCheck{Name: name, Status: checkSkipped}
	}
	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeout)
	defer cancel()

	start := h.deps.Now()
	err := p.Ping(ctx)
	c := ReadyCheck{Name: name, Status: checkOK, Latency: h.deps.Now().Sub(start).Milliseconds()}
	if err != nil {
		c.Status, c.Error = checkFail, err.Error()
	}
	return c
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(*http.Request) (any, error) {
	return version.Info(), nil
}

// @Summary Process info, uptime and live session count
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(*http.Request) (any, error) {
	out := ServiceResponse{
		Name:     h.deps.ServiceName,
		Started:  h.stamp(h.deps.StartedAt),
		Uptime:   int64(h.deps.Now().Sub(h.deps.StartedAt) / time.Second),
		Upstream: h.deps.UpstreamMode,
	}
	if h.deps.Sessions != nil {
		out.OpenSessions = h.deps.Sessions.Len()
	}
	return out, nil
}

func (h *handlers) stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
