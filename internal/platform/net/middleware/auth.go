package middleware

import (
	"net/http"

	pnet "feedweave/internal/platform/net"
)

// AuthPort resolves the viewer behind a request
type AuthPort interface {
	// Parse returns the viewer id and the bearer token to forward upstream
	Parse(r *http.Request) (userID string, token string, err error)
}

// ErrorWriter renders a rejected request
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Auth puts the viewer and their token on the request context, requests the port rejects go to fail.
// A nil port lets everything through
func Auth(p AuthPort, fail ErrorWriter) func(http.Handler) http.Handler {
	if p == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, tok, err := p.Parse(r)
			if err != nil {
				fail(w, r, err)
				return
			}
			ctx := pnet.WithToken(pnet.WithUser(r.Context(), uid), tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
