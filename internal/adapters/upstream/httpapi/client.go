// Package httpapi implements the feed upstream over the social REST API
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"feedweave/internal/platform/config"
	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"
	pnet "feedweave/internal/platform/net"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUA        = "feedweave"
	defaultMaxRetry  = 3
	defaultRetryBase = 250 * time.Millisecond
	maxBackoff       = 10 * time.Second
	maxBody          = 4 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// OptionsFromConfig reads FEED_UPSTREAM_ keys
func OptionsFromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("FEED_UPSTREAM_")
	return Options{
		BaseURL:    c.MustString("BASE_URL"),
		UserAgent:  c.MayString("USER_AGENT", defaultUA),
		Timeout:    c.MayDuration("TIMEOUT", defaultTimeout),
		MaxRetries: c.MayInt("MAX_RETRIES", defaultMaxRetry),
		RetryBase:  c.MayDuration("RETRY_BASE", defaultRetryBase),
	}
}

// Client is the upstream REST client, the viewer's bearer token comes from the request context
type Client struct {
	http  *http.Client
	opts  Options
	log   *logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a new Client with defaults filled in
func NewClient(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   logger.Named("upstream"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// do issues one logical call with auth headers, retries and rate limit handling
// in is JSON encoded when non-nil, out is decoded from a 2xx body when non-nil
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode %s %s", method, path)
		}
		body = b
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "upstream call canceled")
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return err
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.canRetry(method, 0, attempts) {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "upstream %s %s failed", method, path)
			}
			if err := c.wait(ctx, c.backoff(attempts), method, path, attempts, "upstream transport error retrying"); err != nil {
				return err
			}
			attempts++
			continue
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("upstream http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return c.decode(resp, out, method, path)
		case resp.StatusCode == http.StatusTooManyRequests || isTransient(resp.StatusCode):
			if !c.canRetry(method, resp.StatusCode, attempts) {
				_ = drainAndClose(resp.Body)
				return statusError(resp.StatusCode, method, path, "")
			}
			wait := c.backoff(attempts)
			if resp.StatusCode == http.StatusTooManyRequests {
				if ra := retryAfter(resp.Header, c.now()); ra > 0 {
					wait = ra
				}
			}
			_ = drainAndClose(resp.Body)
			if err := c.wait(ctx, wait, method, path, attempts, "upstream status retrying"); err != nil {
				return err
			}
			attempts++
			continue
		default:
			// read a small tail for diagnostics then return
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return statusError(resp.StatusCode, method, path, string(tail))
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rd)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "upstream new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := pnet.Token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if rid := pnet.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	return req, nil
}

func (c *Client) decode(resp *http.Response, out any, method, path string) error {
	defer func() {
		if cerr := drainAndClose(resp.Body); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("upstream close body failed")
		}
	}()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "upstream read %s %s", method, path)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "upstream decode %s %s", method, path)
	}
	return nil
}

func (c *Client) wait(ctx context.Context, d time.Duration, method, path string, attempt int, msg string) error {
	c.log.Warn().Str("method", method).Str("path", path).Dur("retry_in", d).Int("attempt", attempt).Msg(msg)
	if err := c.sleep(ctx, d); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "upstream call canceled")
	}
	return nil
}

// canRetry reports whether another attempt is allowed
// a POST is only replayed when the server signalled it did not process it
func (c *Client) canRetry(method string, status, attempt int) bool {
	if attempt >= c.opts.MaxRetries {
		return false
	}
	if method != http.MethodPost {
		return true
	}
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}
