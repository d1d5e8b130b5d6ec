// Package pg builds the pgx pool behind the store
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the pool shape, zero values keep pgxpool defaults
type Config struct {
	URL      string
	AppName  string
	MaxConns int32
	Tracer   pgx.QueryTracer
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and builds a pool; connections are dialed lazily
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	if cfg.Tracer != nil {
		pc.ConnConfig.Tracer = cfg.Tracer
	}
	return newPool(ctx, pc)
}
