package net_test

import (
	"context"
	"testing"

	pnet "feedweave/internal/platform/net"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = pnet.WithRequestID(ctx, "req-7")
	ctx = pnet.WithUser(ctx, "u-42")
	ctx = pnet.WithToken(ctx, "tok")

	if pnet.RequestID(ctx) != "req-7" || pnet.UserID(ctx) != "u-42" || pnet.Token(ctx) != "tok" {
		t.Fatalf("values not recovered: %q %q %q", pnet.RequestID(ctx), pnet.UserID(ctx), pnet.Token(ctx))
	}
}

func TestEmptyValuesLeaveContextAlone(t *testing.T) {
	base := context.Background()
	if pnet.WithRequestID(base, "") != base || pnet.WithUser(base, "") != base || pnet.WithToken(base, "") != base {
		t.Fatalf("empty values should not wrap")
	}
	if pnet.RequestID(base) != "" || pnet.UserID(base) != "" || pnet.Token(base) != "" {
		t.Fatalf("bare context should be empty")
	}
}
