package datasource

import (
	"fmt"
	"sort"
	"sync"

	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
)

// Registry maps source ids to IMarketProvider instances. Lookup of an
// unregistered id yields UnsupportedSourceError, the permanent failure the
// gateway surface maps to a 4xx response.
type Registry struct {
	providers map[string]interfaces.IMarketProvider
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		providers: make(map[string]interfaces.IMarketProvider),
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// Register adds a provider under its own name.
func (r *Registry) Register(p interfaces.IMarketProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}

	r.providers[name] = p
	r.Logger.Info("Registered source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// Get retrieves a provider by source id.
func (r *Registry) Get(name string) (interfaces.IMarketProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, &helpers.UnsupportedSourceError{Source: name}
	}
	return p, nil
}

// -----------------------------------------------------------------------------

// Names returns the registered source ids, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
