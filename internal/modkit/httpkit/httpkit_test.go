package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "feedweave/internal/platform/errors"
	pnet "feedweave/internal/platform/net"
	phttp "feedweave/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type draftIn struct {
	Content string `json:"content" validate:"max=10"`
}

func newAPI(t *testing.T, fn TokenFunc) http.Handler {
	t.Helper()
	mux := chi.NewRouter()
	MountAPIV1(phttp.AdaptChi(mux), CommonStack(StackOptions{CORSOrigins: []string{"https://app.example"}}), func(api Router) {
		Get(api, "/open", func(*http.Request) (any, error) { return "hi", nil })
		Protected(api, NewPortFunc(fn), func(pr Router) {
			Get(pr, "/me/{x}", func(r *http.Request) (any, error) {
				return map[string]string{"uid": pnet.UserID(r.Context()), "x": Param(r, "x")}, nil
			})
			PutJSON(pr, "/draft", func(_ *http.Request, in draftIn) (any, error) { return Accepted(in), nil })
			Post(pr, "/boom", func(*http.Request) (any, error) { return nil, perr.Conflictf("in flight") })
			Delete(pr, "/gone", func(*http.Request) (any, error) { return NoContent(), nil })
			PostJSON(pr, "/created", func(_ *http.Request, in draftIn) (any, error) { return Created(in), nil })
		})
	})
	return mux
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProtectedRoutes(t *testing.T) {
	h := newAPI(t, SubjectToken)

	if rec := do(h, "GET", "/api/v1/open", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("open route: %d", rec.Code)
	}
	if rec := do(h, "GET", "/api/v1/me/1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}

	rec := do(h, "GET", "/api/v1/me/7", "", "u-1")
	var env struct {
		Data map[string]string `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if rec.Code != http.StatusOK || env.Data["uid"] != "u-1" || env.Data["x"] != "7" {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	cases := []struct {
		method, path, body string
		want               int
	}{
		{"PUT", "/api/v1/draft", `{"content":"hey"}`, http.StatusAccepted},
		{"PUT", "/api/v1/draft", `{"content":"far too long for this"}`, http.StatusBadRequest},
		{"POST", "/api/v1/boom", "", http.StatusConflict},
		{"DELETE", "/api/v1/gone", "", http.StatusNoContent},
		{"POST", "/api/v1/created", `{"content":"x"}`, http.StatusCreated},
	}
	for _, c := range cases {
		if rec := do(h, c.method, c.path, c.body, "u-1"); rec.Code != c.want {
			t.Fatalf("%s %s = %d want %d (%s)", c.method, c.path, rec.Code, c.want, rec.Body.String())
		}
	}
}

func TestPortParse(t *testing.T) {
	p := NewPortFunc(OpaqueToken)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "bearer   tok-1 ")
	uid, tok, err := p.Parse(r)
	if err != nil || tok != "tok-1" || uid == "" || uid == "tok-1" {
		t.Fatalf("parse = %q %q %v", uid, tok, err)
	}
	again, _, _ := p.Parse(r)
	if again != uid {
		t.Fatalf("opaque principal should be stable")
	}

	for _, hdr := range []string{"", "Basic abc", "Bearer   "} {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", hdr)
		if _, _, err := p.Parse(r); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
			t.Fatalf("%q: expected unauthorized, got %v", hdr, err)
		}
	}

	bad := NewPortFunc(func(string) (string, error) { return "", errors.New("nope") })
	if _, _, err := bad.Parse(r); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		t.Fatalf("parser failure should be unauthorized")
	}
	if _, _, err := (&Port{}).Parse(r); err == nil {
		t.Fatalf("nil parser should reject")
	}
}

func TestPortParse_WebsocketQueryToken(t *testing.T) {
	p := NewPortFunc(SubjectToken)

	r := httptest.NewRequest("GET", "/stream?access_token=u-9", nil)
	if _, _, err := p.Parse(r); err == nil {
		t.Fatalf("query token outside a websocket handshake should be ignored")
	}

	r.Header.Set("Upgrade", "websocket")
	uid, tok, err := p.Parse(r)
	if err != nil || uid != "u-9" || tok != "u-9" {
		t.Fatalf("parse = %q %q %v", uid, tok, err)
	}
}
