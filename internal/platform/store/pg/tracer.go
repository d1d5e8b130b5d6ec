package pg

import (
	"context"
	"strings"
	"time"

	"feedweave/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

type startedKey struct{}

type started struct {
	sql  string
	args int
	at   time.Time
}

// Tracer logs each statement with its latency; statements slower than Slow, or failing, log at warn
type Tracer struct {
	log  logger.Logger
	Slow time.Duration
	now  func() time.Time
}

var _ pgx.QueryTracer = (*Tracer)(nil)

// NewTracer tags lines with component=pg
func NewTracer(root logger.Logger, slow time.Duration) *Tracer {
	return &Tracer{log: root.With().Str("component", "pg").Logger(), Slow: slow, now: time.Now}
}

// TraceQueryStart stashes the statement on the query context
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, startedKey{}, started{sql: d.SQL, args: len(d.Args), at: t.now()})
}

// TraceQueryEnd writes one log line per statement
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	s, ok := ctx.Value(startedKey{}).(started)
	if !ok {
		return
	}
	elapsed := t.now().Sub(s.at)
	slow := t.Slow > 0 && elapsed >= t.Slow

	evt := t.log.Info()
	if slow || d.Err != nil {
		evt = t.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(elapsed.Microseconds())/1000).
		Bool("slow", slow).
		Str("sql", compact(s.sql)).
		Int("args", s.args).
		Int64("rows", d.CommandTag.RowsAffected()).
		Err(d.Err).
		Msg("pg query")
}

// compact folds a multi-line statement onto one line
func compact(sql string) string { return strings.Join(strings.Fields(sql), " ") }
