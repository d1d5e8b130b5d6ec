package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is what pgxpool.Pool and pgx.Tx have in common
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn narrows a pool or a tx to RowQuerier
type conn struct{ q querier }

func (c conn) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return c.q.Exec(ctx, sql, args...)
}

func (c conn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := c.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (c conn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return c.q.QueryRow(ctx, sql, args...)
}

// pgRunner is the TxRunner handed to repositories
type pgRunner struct {
	conn
	pool *pgxpool.Pool
}

func newPGRunner(pool *pgxpool.Pool) *pgRunner {
	return &pgRunner{conn: conn{q: pool}, pool: pool}
}

func (r *pgRunner) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return errors.New("pg: not open")
	}
	return r.pool.Ping(ctx)
}

func (r *pgRunner) Close() error {
	r.pool.Close()
	return nil
}

// Tx commits when fn returns nil and rolls back otherwise
func (r *pgRunner) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error { return fn(conn{q: tx}) })
}
