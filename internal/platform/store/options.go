package store

import "feedweave/internal/platform/logger"

// Option adjusts a Store before any backend is opened
type Option func(*Store) error

// WithLogger routes connection and query logs to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error { s.Log = log; return nil }
}
