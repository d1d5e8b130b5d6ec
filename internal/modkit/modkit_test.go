package modkit

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedweave/internal/modkit/httpkit"
	phttp "feedweave/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestBuild_DefaultsAndOptions(t *testing.T) {
	b := Build()
	if b.Subrouter == nil || b.Register == nil {
		t.Fatalf("hooks should default to no-ops")
	}

	type ports struct{ N int }
	b = Build(WithName("feed"), WithPrefix("feed/"), WithPorts(ports{N: 3}))
	if b.Name != "feed" || b.Prefix != "/feed" {
		t.Fatalf("built = %+v", b)
	}
	if p, ok := b.Ports.(ports); !ok || p.N != 3 {
		t.Fatalf("ports = %#v", b.Ports)
	}
}

func TestBuilt_MountOrder(t *testing.T) {
	var order []string
	b := Build(
		WithPrefix("/m"),
		WithMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "mw")
				next.ServeHTTP(w, r)
			})
		}),
		WithSubrouter(func(r phttp.Router) phttp.Router { order = append(order, "sub"); return r }),
		WithRegister(func(r phttp.Router) {
			r.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
		}),
	)

	mux := chi.NewRouter()
	b.Mount(phttp.AdaptChi(mux), func(r httpkit.Router) {
		r.Get("/own", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/m/extra", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("extra route: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/m/own", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("own route: %d", rec.Code)
	}
	if len(order) != 3 || order[0] != "sub" || order[1] != "mw" {
		t.Fatalf("order = %v", order)
	}
}

func TestDeps_Named(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	Deps{Log: &base}.Named("feed").Info().Msg("hi")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"feed"`)) {
		t.Fatalf("line = %s", buf.String())
	}
	if (Deps{}).Named("feed") == nil {
		t.Fatalf("nil Log should fall back to the root logger")
	}
}
