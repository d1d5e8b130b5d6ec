package config

import (
	"testing"
	"time"

	kit "feedweave/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	c := New().Prefix("FEED_").Prefix("UPSTREAM_")
	if got := c.Key("BASE_URL"); got != "FEED_UPSTREAM_BASE_URL" {
		t.Fatalf("Key = %q", got)
	}
}

func TestMayAccessors(t *testing.T) {
	t.Setenv("T_INT", "15")
	t.Setenv("T_BADINT", "fifteen")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_BADDUR", "soon")
	t.Setenv("T_CSV", " a, ,b ,")
	t.Setenv("T_BLANKCSV", " , ")

	c := New().Prefix("T_")
	if c.MayInt("INT", 1) != 15 || c.MayInt("BADINT", 3) != 3 || c.MayInt("MISSING", 4) != 4 {
		t.Fatalf("MayInt mismatch")
	}
	if !c.MayBool("BOOL", false) || c.MayBool("MISSING", false) {
		t.Fatalf("MayBool mismatch")
	}
	if c.MayDuration("DUR", 0) != 90*time.Second || c.MayDuration("BADDUR", time.Hour) != time.Hour {
		t.Fatalf("MayDuration mismatch")
	}
	got := c.MayCSV("CSV", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("MayCSV = %v", got)
	}
	if def := c.MayCSV("BLANKCSV", []string{"d"}); len(def) != 1 || def[0] != "d" {
		t.Fatalf("blank csv should fall back, got %v", def)
	}
	if c.MayString("MISSING", "x") != "x" {
		t.Fatalf("MayString fallback")
	}
}

func TestMayEnum(t *testing.T) {
	t.Setenv("E_MODE", "PG")
	c := New().Prefix("E_")
	if got := c.MayEnum("MODE", "http", "http", "pg"); got != "pg" {
		t.Fatalf("MayEnum = %q", got)
	}
	if got := c.MayEnum("UNSET", "http", "http", "pg"); got != "http" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_BAD", "grpc")
	kit.MustPanic(t, func() { c.MayEnum("BAD", "http", "http", "pg") })
}

func TestMayAddr(t *testing.T) {
	t.Setenv("A_PORT", "8080")
	t.Setenv("A_FULL", "127.0.0.1:9000")
	t.Setenv("A_BAD", "99999")
	c := New().Prefix("A_")
	if c.MayAddr("PORT", ":4000") != ":8080" {
		t.Fatalf("bare port not prefixed")
	}
	if c.MayAddr("FULL", ":4000") != "127.0.0.1:9000" {
		t.Fatalf("host:port changed")
	}
	if c.MayAddr("UNSET", ":4000") != ":4000" {
		t.Fatalf("default not used")
	}
	kit.MustPanic(t, func() { c.MayAddr("BAD", ":4000") })
}

func TestMustStringAndURL(t *testing.T) {
	t.Setenv("M_URL", "https://api.example.test/v1")
	t.Setenv("M_REL", "/relative")
	c := New().Prefix("M_")
	if u := c.MustURL("URL"); u.Host != "api.example.test" {
		t.Fatalf("host = %q", u.Host)
	}
	kit.MustPanic(t, func() { c.MustString("NOPE") })
	kit.MustPanic(t, func() { c.MustURL("REL") })
}
