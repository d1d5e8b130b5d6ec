package store

import (
	"context"
	"fmt"
	"time"

	"feedweave/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
)

var sleep = time.Sleep

const (
	firstBackoff = 150 * time.Millisecond
	maxBackoff   = 2 * time.Second
)

// openPG builds the pool and returns a runner once postgres answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pgx.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.NewTracer(s.Log, time.Duration(cfg.PG.SlowQueryMs)*time.Millisecond)
	}
	pool, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		Tracer:   tracer,
	})
	if err != nil {
		return nil, err
	}

	r := newPGRunner(pool)
	if err := s.waitReady(ctx, r, cfg.PG); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// waitReady pings with doubling backoff until postgres answers, attempts run out or ctx ends
func (s *Store) waitReady(ctx context.Context, p Pinger, cfg PGConfig) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	var err error
	wait := firstBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = p.Ping(pctx)
		cancel()
		if err == nil {
			s.Log.Info().Int("attempt", attempt).Msg("postgres ready")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("postgres not ready")
		sleep(wait)
		wait = min(2*wait, maxBackoff)
	}
	return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, err)
}
