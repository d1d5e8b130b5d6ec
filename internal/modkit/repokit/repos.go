// Package repokit is the sql surface feed repositories are written against
package repokit

import (
	"context"
	"fmt"

	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/store"
)

type (
	// Queryer runs statements on the pool or inside a tx
	Queryer = store.RowQuerier
	// TxRunner opens transactions
	TxRunner = store.TxRunner
	// Rows is a result set
	Rows = store.Rows
	// Row is one result row
	Row = store.Row
	// CommandTag reports rows touched by a write
	CommandTag = store.CommandTag
)

// TxAttempts bounds how often WithTx reruns fn after a serialization failure or deadlock
const TxAttempts = 3

// WithTx runs fn in a transaction, rerunning the whole transaction while postgres reports a retryable conflict
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	var err error
	for range TxAttempts {
		if err = tx.Tx(ctx, fn); !perr.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// MustGuard panics unless every backend behind st answers
func MustGuard(ctx context.Context, st interface{ Guard(context.Context) error }) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
