// Package testkit holds helpers shared by package tests
package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Recovered runs fn and returns whatever it panicked with, nil when it returned normally
func Recovered(fn func()) (v any) {
	defer func() { v = recover() }()
	fn()
	return nil
}

// MustPanic fails the test unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if Recovered(fn) == nil {
		t.Fatalf("expected panic, got none")
	}
}

// MustPanicWith fails unless fn panics with a value whose text contains want
func MustPanicWith(t *testing.T, want string, fn func()) {
	t.Helper()
	v := Recovered(fn)
	if v == nil {
		t.Fatalf("expected panic containing %q, got none", want)
	}
	if got := fmt.Sprint(v); !strings.Contains(got, want) {
		t.Fatalf("panic %q does not contain %q", got, want)
	}
}

// MustNotPanic fails the test if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if v := Recovered(fn); v != nil {
		t.Fatalf("unexpected panic: %v", v)
	}
}

// MustContain fails unless out contains want. The full output is kept under the test temp dir
func MustContain(t *testing.T, out, want string) {
	t.Helper()
	if strings.Contains(out, want) {
		return
	}
	name := strings.ReplaceAll(t.Name(), "/", "_") + ".out"
	path := filepath.Join(t.TempDir(), name)
	_ = os.WriteFile(path, []byte(out), 0o600)
	t.Fatalf("output lacks %q (%d bytes kept at %s)", want, len(out), path)
}
