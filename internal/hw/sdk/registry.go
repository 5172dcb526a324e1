package sdk

import (
	"fmt"
	"sort"
	"sync"
)

// Factory opens a transport.
type Factory func() (Transport, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a transport available by name. It panics if Register is
// called twice with the same name or if f is nil.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("sdk: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("sdk: Register called twice for transport " + name)
	}
	factories[name] = f
}

// Open creates a transport registered under name.
func Open(name string) (Transport, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sdk: unknown transport %q (registered: %v)", name, Transports())
	}
	return f()
}

// Transports returns the sorted list of registered names.
func Transports() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
