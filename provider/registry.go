package provider

import (
	"fmt"
	"sync"
)

var (
	registry = make(map[string]func() (Adapter, error))
	mu       sync.RWMutex
)

// Register makes a factory available under the given provider name. Adapter
// packages call this from init(), so a blank import is enough to enable a
// vendor. Registering the same name again replaces the factory.
func Register(name string, factory func() (Adapter, error)) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Get builds a fresh adapter for the named provider. Stateful adapters
// track per-stream decode state, so callers must not share one instance
// across streams; each Get call returns a new one.
func Get(name string) (Adapter, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %q (available: %v)", name, Available())
	}

	return factory()
}

// Available lists every registered provider name, in no particular order.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a factory exists for the name.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}
