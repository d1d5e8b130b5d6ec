package store

import (
	"context"

	perr "feedweave/internal/platform/errors"
)

// ExecOne runs a write that must touch exactly one row, zero rows is ErrNotFound
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	switch {
	case err != nil:
		return err
	case tag.RowsAffected() != 1:
		return perr.ErrNotFound
	}
	return nil
}

// Scalar reads the first column of the first row
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (v T, err error) {
	err = q.QueryRow(ctx, sql, args...).Scan(&v)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// each scans every row of a query through scan, stopping when keep returns false
func each[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), keep func(T) bool, sql string, args ...any) error {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return err
		}
		if !keep(item) {
			break
		}
	}
	return rows.Err()
}

// One scans the first row, ErrNotFound when the query yields none
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var (
		out   T
		found bool
	)
	err := each(ctx, q, scan, func(v T) bool { out, found = v, true; return false }, sql, args...)
	switch {
	case err != nil:
		var zero T
		return zero, err
	case !found:
		return out, perr.ErrNotFound
	}
	return out, nil
}

// Many scans every row
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	var out []T
	if err := each(ctx, q, scan, func(v T) bool { out = append(out, v); return true }, sql, args...); err != nil {
		return nil, err
	}
	return out, nil
}
