package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"
	pnet "feedweave/internal/platform/net"

	"github.com/go-chi/chi/v5"
)

// AccessLogOptions configures AccessLogZerolog
type AccessLogOptions struct {
	// Slow lifts requests at or over it to warn, 0 turns that off
	Slow time.Duration
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

// recorder notes status and size; it stays a Hijacker so websocket upgrades still work behind it
type recorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *recorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, perr.Internalf("response writer cannot be hijacked")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// AccessLogZerolog puts the request id on the logging context and writes one line per request.
// 5xx logs at error, slow requests at warn
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()))
			rw := &recorder{ResponseWriter: w}
			start := now()

			next.ServeHTTP(rw, r.WithContext(ctx))

			if rw.status == 0 {
				rw.status = http.StatusOK
			}
			took := now().Sub(start)
			log := logger.C(ctx)
			evt := log.Info()
			switch {
			case rw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case opt.Slow > 0 && took >= opt.Slow:
				evt = log.Warn()
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			evt.Int("status", rw.status).
				Dur("elapsed", took).
				Str("method", r.Method).
				Str("route", route).
				Str("remote", r.RemoteAddr).
				Int("bytes", rw.size).
				Msg("request done")
		})
	}
}
