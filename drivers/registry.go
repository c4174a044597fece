package drivers

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a driver instance with the given API key.
type Factory func(apiKey string) Driver

// registry holds registered driver factories keyed by API style.
var (
	registryMu sync.RWMutex
	registry   = make(map[APIStyle]Factory)
)

// Register adds a driver factory to the registry.
// It is typically called from a driver package's init() function.
// Registering the same style twice overwrites the earlier factory.
//
// Example usage in a driver package:
//
//	func init() {
//	    drivers.Register(drivers.StyleOpenAI, func(apiKey string) drivers.Driver {
//	        return New(apiKey)
//	    })
//	}
func Register(style APIStyle, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[style] = factory
}

// ForStyle creates a driver for the given API style.
//
// Unrecognized and explicitly custom styles fall back to the
// OpenAI-compatible driver, since many third-party providers mirror that
// wire format. An error is returned only when no fallback is registered
// either.
func ForStyle(style APIStyle, apiKey string) (Driver, error) {
	registryMu.RLock()
	factory, ok := registry[style]
	if !ok {
		factory, ok = registry[StyleOpenAI]
	}
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no driver for style %q (registered: %v)", style, List())
	}
	return factory(apiKey), nil
}

// List returns the registered API styles in sorted order.
func List() []APIStyle {
	registryMu.RLock()
	defer registryMu.RUnlock()

	styles := make([]APIStyle, 0, len(registry))
	for s := range registry {
		styles = append(styles, s)
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i] < styles[j] })
	return styles
}

// IsRegistered reports whether a driver is registered for the style.
func IsRegistered(style APIStyle) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[style]
	return ok
}
