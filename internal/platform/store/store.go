// Package store is the postgres seam the feed repositories run against
package store

import (
	"context"
	"errors"
	"fmt"

	"feedweave/internal/platform/logger"
)

// Row is a single scannable result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward-only result set
type Rows interface {
	Row
	Next() bool
	Err() error
	Close()
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier runs statements, it is satisfied by the pool and by an open tx
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can also scope fn to one transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Store holds the opened backends. A zero Store has none and is safe to use
type Store struct {
	Log logger.Logger

	// PG is nil unless Config.PG was enabled
	PG TxRunner
}

// Open connects every backend cfg enables
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: *logger.Nop()}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	if !cfg.PG.Enabled {
		return s, nil
	}
	r, err := openPG(ctx, cfg, s)
	if err != nil {
		return nil, err
	}
	s.PG = r
	return s, nil
}

// Ping checks postgres when it is configured
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.PG.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("pg: %w", err)
	}
	return nil
}

// Guard is Ping for startup, a nil store fails
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: not opened")
	}
	return s.Ping(ctx)
}

// Close releases every opened backend
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
