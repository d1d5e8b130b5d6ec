package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "feedweave/internal/platform/net/http"
	"feedweave/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string
	// SlowRequest is where access log lines turn to warn, 500ms when zero
	SlowRequest time.Duration
}

// CommonStack is the middleware every /api/v1 route runs behind, outermost first
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.SlowRequest <= 0 {
		o.SlowRequest = 500 * time.Millisecond
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.SlowRequest}),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}),
		middleware.Compress(flate.BestSpeed),
	}
}

// Protected groups routes behind bearer auth, rejections use the standard error envelope
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(gr Router) {
		gr.Use(middleware.Auth(p, phttp.RespondError))
		fn(gr)
	})
}
