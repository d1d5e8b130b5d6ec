package bind

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "feedweave/internal/platform/errors"
)

type commentIn struct {
	Content  string `json:"content" validate:"notblank,max=20"`
	ParentID string `json:"parent_id,omitempty"`
}

type voteIn struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func post(body string) *http.Request {
	return httptest.NewRequest("POST", "/", strings.NewReader(body))
}

func TestParseJSON_Success(t *testing.T) {
	got, err := ParseJSON[commentIn](post(`{"content":"nice pick","parent_id":"c1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "nice pick" || got.ParentID != "c1" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_EmptyBody(t *testing.T) {
	_, err := ParseJSON[commentIn](httptest.NewRequest("POST", "/", http.NoBody))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}

	got, err := ParseJSON[commentIn](httptest.NewRequest("DELETE", "/", http.NoBody))
	if err != nil || got != (commentIn{}) {
		t.Fatalf("DELETE with no body: %+v %v", got, err)
	}

	got, err = ParseJSON[commentIn](httptest.NewRequest("POST", "/", http.NoBody), Options{Optional: true})
	if err != nil || got != (commentIn{}) {
		t.Fatalf("optional body: %+v %v", got, err)
	}
}

func TestParseJSON_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"invalid":  `{`,
		"unknown":  `{"content":"x","boom":1}`,
		"oversize": `{"content":"` + strings.Repeat("a", 64) + `"}`,
		"trailing": `{"content":"ok"} {"content":"again"}`,
		"scalar":   `5`,
	}
	for name, body := range cases {
		_, err := ParseJSON[commentIn](post(body), Options{MaxBytes: 48})
		if perr.CodeOf(err) != perr.ErrorCodeJSON {
			t.Fatalf("%s: expected JSON error, got %v (%v)", name, perr.CodeOf(err), err)
		}
	}
}

func TestParseJSON_UnknownAllowed(t *testing.T) {
	if _, err := ParseJSON[commentIn](post(`{"content":"ok","extra":true}`), Options{AllowUnknown: true}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestParseJSON_NonStructTarget(t *testing.T) {
	_, err := ParseJSON[int](post(`5`))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON-coded error, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_ValidationMessages(t *testing.T) {
	cases := []struct {
		name, body, field, msg string
		parse                  func(*http.Request) error
	}{
		{"blank", `{"content":"   "}`, "content", "content must not be blank",
			func(r *http.Request) error { _, err := ParseJSON[commentIn](r); return err }},
		{"too long", `{"content":"` + strings.Repeat("x", 21) + `"}`, "content", "content must be at most 20",
			func(r *http.Request) error { _, err := ParseJSON[commentIn](r); return err }},
		{"missing", `{}`, "direction", "direction is required",
			func(r *http.Request) error { _, err := ParseJSON[voteIn](r); return err }},
		{"sideways", `{"direction":"sideways"}`, "direction", "direction must be one of [up down]",
			func(r *http.Request) error { _, err := ParseJSON[voteIn](r); return err }},
	}
	for _, tc := range cases {
		err := tc.parse(post(tc.body))
		if perr.CodeOf(err) != perr.ErrorCodeValidation {
			t.Fatalf("%s: code = %v (%v)", tc.name, perr.CodeOf(err), err)
		}
		w := perr.WireFrom(err)
		if w.Field != tc.field || w.Message != tc.msg {
			t.Fatalf("%s: field=%q msg=%q", tc.name, w.Field, w.Message)
		}
	}
}

func TestExplain(t *testing.T) {
	type s struct {
		Limit int `json:"limit,omitempty" validate:"min=1"`
		Max   int `json:"-" validate:"max=2"`
	}
	r := Validator()
	field, msg := r.Explain(r.v.Struct(s{Limit: 0}))
	if field != "limit" || msg != "limit must be at least 1" {
		t.Fatalf("field=%q msg=%q", field, msg)
	}
	field, msg = r.Explain(r.v.Struct(s{Limit: 1, Max: 3}))
	if field != "Max" || msg != "Max must be at most 2" {
		t.Fatalf("field=%q msg=%q", field, msg)
	}
	if f, m := r.Explain(errors.New("boom")); f != "" || m != "boom" {
		t.Fatalf("generic passthrough: %q %q", f, m)
	}
	if f, m := r.Explain(nil); f != "" || m != "" {
		t.Fatalf("nil: %q %q", f, m)
	}
}
