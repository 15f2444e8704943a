package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Driver is a provider binding: it names itself, exposes the provider's
// dialect singleton, and opens sessions. Provider packages register
// themselves from init, so importing a provider is enough to enable it.
type Driver interface {
	// Name is the primary provider name used for lookup.
	Name() string

	// Aliases lists alternative lookup names.
	Aliases() []string

	// Dialect returns the provider's shared dialect instance.
	Dialect() Dialect

	// Open connects to the database named by url and returns a live
	// session.
	Open(ctx context.Context, url string) (Session, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

// Register adds a driver to the registry under its name and aliases.
// It panics on duplicate registration, which would indicate two
// provider packages claiming the same name.
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := append([]string{d.Name()}, d.Aliases()...)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, dup := registry[key]; dup {
			panic(fmt.Sprintf("driver: Register called twice for %q", key))
		}
		registry[key] = d
	}
}

// Lookup finds a registered driver by name or alias,
// case-insensitively.
func Lookup(provider string) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("unsupported database provider %q (available: %s)",
			provider, strings.Join(registeredNamesLocked(), ", "))
	}
	return d, nil
}

// Open is the one-call form of Lookup plus Driver.Open.
func Open(ctx context.Context, provider, url string) (Session, error) {
	d, err := Lookup(provider)
	if err != nil {
		return nil, err
	}
	return d.Open(ctx, url)
}

// registeredNamesLocked returns the primary names of all registered
// drivers. Caller holds registryMu.
func registeredNamesLocked() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range registry {
		if !seen[d.Name()] {
			seen[d.Name()] = true
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	return names
}
