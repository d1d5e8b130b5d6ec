package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "feedweave/internal/platform/errors"
	pnet "feedweave/internal/platform/net"
	phttp "feedweave/internal/platform/net/http"
)

func reqWithReqID(method, path, rid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(pnet.WithRequestID(req.Context(), rid))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestHandle_SuccessEnvelopes(t *testing.T) {
	cases := []struct {
		resp phttp.Response
		code int
	}{
		{phttp.OK(map[string]int{"n": 1}), http.StatusOK},
		{phttp.Created(map[string]int{"n": 1}), http.StatusCreated},
		{phttp.Accepted(map[string]int{"n": 1}), http.StatusAccepted},
		{phttp.Response{Body: "zero status"}, http.StatusOK},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		phttp.Handle(func(*http.Request) phttp.Response { return c.resp })(rec, reqWithReqID("GET", "/x", "rid-1"))
		if rec.Code != c.code {
			t.Fatalf("code = %d want %d", rec.Code, c.code)
		}
		env := decode(t, rec)
		if env.StatusCode != c.code || env.RequestID != "rid-1" || env.Data == nil {
			t.Fatalf("bad envelope: %+v", env)
		}
	}
}

func TestHandle_NoContentWritesNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := phttp.NoContent()
	resp.Header = http.Header{"X-Extra": []string{"1"}}
	phttp.Handle(func(*http.Request) phttp.Response { return resp })(rec, reqWithReqID("DELETE", "/x", ""))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("expected bare 204, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Extra") != "1" {
		t.Fatalf("headers not copied")
	}
}

func TestHandle_ErrorMapsStatusAndField(t *testing.T) {
	rec := httptest.NewRecorder()
	err := perr.WithField(perr.InvalidArgf("bad vote direction"), "direction")
	phttp.Handle(func(*http.Request) phttp.Response { return phttp.Error(err) })(rec, reqWithReqID("POST", "/x", "rid-2"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d", rec.Code)
	}
	env := decode(t, rec)
	if env.Code != perr.ErrorCodeInvalidArgument || env.Field != "direction" || env.Error != "bad vote direction" {
		t.Fatalf("bad error envelope: %+v", env)
	}
}

func TestRespondError_PlainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondError(rec, reqWithReqID("GET", "/", ""), errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRespondError_TransientAdvertisesRetry(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondError(rec, reqWithReqID("POST", "/x", "rid-3"), perr.Unavailablef("upstream down"))
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("code=%d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if env := decode(t, rec); env.Code != perr.ErrorCodeUnavailable || env.RequestID != "rid-3" {
		t.Fatalf("envelope = %+v", env)
	}

	rec = httptest.NewRecorder()
	phttp.RespondError(rec, reqWithReqID("GET", "/x", ""), perr.NotFoundf("session"))
	if rec.Header().Get("Retry-After") != "" {
		t.Fatalf("not found must not advertise a retry")
	}
}
