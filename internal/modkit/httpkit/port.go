package httpkit

import (
	"net/http"
	"strings"

	perrs "feedweave/internal/platform/errors"

	"github.com/google/uuid"
)

// TokenFunc maps a raw bearer token to the principal that owns sessions
type TokenFunc func(token string) (userID string, err error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a parser function
func NewPortFunc(fn TokenFunc) *Port { return &Port{parse: fn} }

// Parse returns the principal and the raw token so it can be forwarded upstream
func (p *Port) Parse(r *http.Request) (string, string, error) {
	s := strings.TrimSpace(r.Header.Get("Authorization"))
	if s == "" && isWebsocket(r) {
		// browsers cannot set headers on a websocket handshake
		if q := strings.TrimSpace(r.URL.Query().Get("access_token")); q != "" {
			s = "Bearer " + q
		}
	}
	if s == "" {
		return "", "", perrs.Unauthorizedf("missing bearer token")
	}
	const prefix = "bearer"
	if !strings.HasPrefix(strings.ToLower(s), prefix) {
		return "", "", perrs.Unauthorizedf("missing bearer token")
	}
	raw := strings.TrimSpace(s[len(prefix):])
	if raw == "" {
		return "", "", perrs.Unauthorizedf("missing bearer token")
	}
	if p.parse == nil {
		return "", "", perrs.Unauthorizedf("invalid bearer token")
	}
	uid, err := p.parse(raw)
	if err != nil || uid == "" {
		return "", "", perrs.Unauthorizedf("invalid bearer token")
	}
	return uid, raw, nil
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

var principalNS = uuid.MustParse("6f1c1f6e-3d0b-4f7e-9a55-2a9d3c1b7e42")

// OpaqueToken derives a stable principal from a token the service cannot decode
// the upstream alone knows who the token belongs to
func OpaqueToken(token string) (string, error) {
	return uuid.NewSHA1(principalNS, []byte(token)).String(), nil
}

// SubjectToken treats the token itself as the user id, used with the postgres upstream
func SubjectToken(token string) (string, error) {
	if strings.ContainsAny(token, " \t") {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	return token, nil
}
