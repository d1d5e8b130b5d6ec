package testkit

import (
	"sync"
	"testing"
)

// serial guards package-level seams shared between tests
var serial sync.Mutex

// Swap points target at replacement until the test ends
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	prev := *target
	*target = replacement
	t.Cleanup(func() { *target = prev })
}

// Serial holds the seam lock for the rest of the test, call it before Swap
// when a seam is read by code running outside the test goroutine
func Serial(t *testing.T) {
	t.Helper()
	serial.Lock()
	t.Cleanup(serial.Unlock)
}
