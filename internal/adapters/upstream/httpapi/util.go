package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	perr "feedweave/internal/platform/errors"
)

func isTransient(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

// statusError maps a final non-2xx status onto a project error code
func statusError(status int, method, path, tail string) error {
	code := perr.ErrorCodeUnavailable
	switch status {
	case http.StatusNotFound:
		code = perr.ErrorCodeNotFound
	case http.StatusUnauthorized:
		code = perr.ErrorCodeUnauthorized
	case http.StatusForbidden:
		code = perr.ErrorCodeForbidden
	}
	msg := "upstream " + method + " " + path + " status " + strconv.Itoa(status)
	if tail = strings.TrimSpace(tail); tail != "" {
		msg += " body " + tail
	}
	return perr.New(code, msg)
}

// retryAfter reads Retry-After as seconds or an HTTP date
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if sec, err := strconv.Atoi(v); err == nil {
		if sec <= 0 {
			return 0
		}
		return min(time.Duration(sec)*time.Second, maxBackoff)
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return min(at.Sub(now), maxBackoff)
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
