package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	cases := map[string]string{
		"select 1":                      "select 1",
		"  select   1  ":                "select 1",
		"SELECT\t*\nFROM\r\tfeed_posts": "SELECT * FROM feed_posts",
		"":                              "",
	}
	for in, want := range cases {
		require.Equal(t, want, compact(in), "compact(%q)", in)
	}
}

type line struct {
	Level     string  `json:"level"`
	ElapsedMS float64 `json:"elapsed_ms"`
	SQL       string  `json:"sql"`
	Args      int     `json:"args"`
	Rows      int64   `json:"rows"`
	Slow      bool    `json:"slow"`
	Error     string  `json:"error"`
	Component string  `json:"component"`
}

func trace(t *testing.T, tr *Tracer, buf *bytes.Buffer, sql string, took time.Duration, end pgx.TraceQueryEndData) line {
	t.Helper()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }
	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql, Args: []any{1, "a"}})
	tr.now = func() time.Time { return base.Add(took) }
	buf.Reset()
	tr.TraceQueryEnd(ctx, nil, end)

	var got line
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got), buf.String())
	return got
}

func TestTracer(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracer(zerolog.New(&buf), 100*time.Millisecond)

	got := trace(t, tr, &buf, "SELECT\n  1", 1500*time.Microsecond, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	require.Equal(t, line{Level: "info", ElapsedMS: 1.5, SQL: "SELECT 1", Args: 2, Rows: 1, Component: "pg"}, got)

	got = trace(t, tr, &buf, "SELECT 2", time.Second, pgx.TraceQueryEndData{})
	require.Equal(t, "warn", got.Level)
	require.True(t, got.Slow)

	got = trace(t, tr, &buf, "SELECT 3", time.Millisecond, pgx.TraceQueryEndData{Err: errors.New("boom")})
	require.Equal(t, "warn", got.Level)
	require.Equal(t, "boom", got.Error)
	require.False(t, got.Slow)
}

func TestTracer_EndWithoutStartIsSilent(t *testing.T) {
	var buf bytes.Buffer
	NewTracer(zerolog.New(&buf), 0).TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	require.Zero(t, buf.Len())
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), Config{URL: "postgres://%zz"})
	require.ErrorContains(t, err, "pg: parse url")

	pool, err := Open(context.Background(), Config{URL: "postgres://u:p@localhost:1/db", AppName: "feedweave-test", MaxConns: 3})
	require.NoError(t, err)
	defer pool.Close()
	cfg := pool.Config()
	require.EqualValues(t, 3, cfg.MaxConns)
	require.Equal(t, "feedweave-test", cfg.ConnConfig.RuntimeParams["application_name"])
}
