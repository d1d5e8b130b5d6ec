package raw

import "testing"

func TestGetAndPrefix(t *testing.T) {
	t.Setenv("LOG_LEVEL", "  warn ")
	t.Setenv("LOG_EMPTY", "   ")

	rc := New().Prefix("LOG_")
	if got := rc.Get("LEVEL", "info"); got != "warn" {
		t.Fatalf("Get LEVEL = %q", got)
	}
	if got := rc.Get("EMPTY", "info"); got != "info" {
		t.Fatalf("blank should fall back, got %q", got)
	}
	if got := rc.Get("MISSING", "x"); got != "x" {
		t.Fatalf("missing should fall back, got %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "on": true, "0": false, "nah": false}
	for in, want := range cases {
		t.Setenv("X_FLAG", in)
		if got := New().Prefix("X_").GetBool("FLAG", !want); got != want {
			t.Fatalf("GetBool(%q) = %v want %v", in, got, want)
		}
	}
	if !New().GetBool("X_UNSET_FLAG", true) {
		t.Fatalf("unset should return default")
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("N_OK", "42")
	t.Setenv("N_BAD", "4x")
	t.Setenv("N_NEG", "-3")
	c := New().Prefix("N_")
	if c.GetInt("OK", 1) != 42 || c.GetInt("BAD", 1) != 1 || c.GetInt("NEG", 7) != 7 || c.GetInt("NONE", 9) != 9 {
		t.Fatalf("unexpected GetInt results")
	}
}
