// Package net carries transport scoped identity on the request context
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey uint8

const (
	keyUserID ctxKey = iota
	keyToken
)

// WithRequestID stores a request id where chi's GetReqID can find it
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID returns the request id on ctx, if any
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithUser stores the authenticated viewer id
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyUserID, userID)
}

// UserID returns the authenticated viewer id on ctx, if any
func UserID(ctx context.Context) string {
	s, _ := ctx.Value(keyUserID).(string)
	return s
}

// WithToken stores the viewer's bearer token so upstream calls can forward it
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, keyToken, token)
}

// Token returns the bearer token on ctx, if any
func Token(ctx context.Context) string {
	s, _ := ctx.Value(keyToken).(string)
	return s
}
