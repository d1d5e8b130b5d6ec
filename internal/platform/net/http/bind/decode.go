package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"
)

// Options tunes ParseJSON, the zero value is not the default, use Defaults
type Options struct {
	MaxBytes     int64
	AllowUnknown bool
	// Optional accepts an empty body on any method
	Optional bool
}

// Defaults caps bodies at 1MB and rejects unknown fields
func Defaults() Options { return Options{MaxBytes: 1 << 20} }

// ParseJSON decodes one JSON value into T and validates it
// an empty body is fine for GET, HEAD, DELETE and OPTIONS
func ParseJSON[T any](r *http.Request, opts ...Options) (T, error) {
	var zero, out T
	o := Defaults()
	if len(opts) > 0 {
		o = opts[0]
	}
	defer closeBody(r)

	var body io.Reader = r.Body
	if o.MaxBytes > 0 {
		body = io.LimitReader(body, o.MaxBytes)
	}
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		if o.Optional || bodiless(r.Method) {
			return out, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(br)
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validator().Check(out); err != nil {
		return zero, err
	}
	return out, nil
}

func bodiless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func closeBody(r *http.Request) {
	if r.Body == nil {
		return
	}
	if err := r.Body.Close(); err != nil {
		logger.C(r.Context()).Warn().Err(err).Msg("closing request body")
	}
}
