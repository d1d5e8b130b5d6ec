package strings

import (
	"testing"

	kit "feedweave/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	if got := IfEmpty(nil, []string{"a"}); len(got) != 1 {
		t.Fatalf("default not used")
	}
	if got := IfEmpty([]int{1, 2}, []int{9}); len(got) != 2 {
		t.Fatalf("input not kept")
	}
}

func TestMustPrefix(t *testing.T) {
	kit.MustPanic(t, func() { MustPrefix(" / ") })
	for in, want := range map[string]string{"feed": "/feed", "/feed/": "/feed", " meta ": "/meta"} {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q want %q", in, got, want)
		}
	}
}

func TestSQLNullAndFirstNonEmpty(t *testing.T) {
	if SQLNull(" ") != nil || SQLNull("a") != "a" {
		t.Fatalf("SQLNull")
	}
	if FirstNonEmpty("", " ", "x", "y") != "x" || FirstNonEmpty() != "" {
		t.Fatalf("FirstNonEmpty")
	}
}
