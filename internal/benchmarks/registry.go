// Package benchmarks holds the registry of runnable benchmark definitions.
// Benchmark packages register a constructor from their init function; a
// fresh instance is built per worker so models are never shared.
package benchmarks

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu       sync.Mutex
	registry = make(map[string]func() interface{})
)

// Register adds a benchmark constructor under a unique name.
func Register(name string, constructor func() interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("benchmark %q registered twice", name))
	}
	registry[name] = constructor
}

// Names lists the registered benchmarks in sorted order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a fresh instance of the named benchmark.
func New(name string) (interface{}, error) {
	mu.Lock()
	constructor, ok := registry[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown benchmark: %s (available: %v)", name, Names())
	}
	return constructor(), nil
}
