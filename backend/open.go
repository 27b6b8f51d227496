package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor creates a Storage for the given path.
type Constructor func(path string) (Storage, error)

// Global registry for storage backends
var (
	registryMu   sync.RWMutex
	constructors = make(map[string]Constructor)
)

// Register registers a storage constructor under name.
// Backends should call this in their init() function.
func Register(name string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[name] = constructor
}

// Registered returns the names of all registered backends, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the storage registered under name.
func Open(name, path string) (Storage, error) {
	registryMu.RLock()
	constructor, ok := constructors[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown backend: %s (registered: %v)", name, Registered())
	}
	return constructor(path)
}
