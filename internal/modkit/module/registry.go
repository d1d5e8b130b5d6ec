package module

import (
	"slices"
	"sync"
)

// port sets by module name, written while the API mounts
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port set of the named module, replacing any earlier one
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs returns the named module's port set when it is a T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := reg[name].(T)
	return v, ok
}

// Names lists registered modules in order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset clears the registry, tests only
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(reg)
}
