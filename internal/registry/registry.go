// Package registry maps indicator names to the priority-ordered providers
// able to serve them. A registry is an explicitly constructed object owned by
// the data service; there is no process-global instance, so tests can run
// isolated registries side by side.
package registry

import (
	"sort"
	"sync"

	"macropull/internal/domain/repository"
)

// Registry is read-mostly: built at startup, append-only afterwards.
// Reads run concurrently under RLock; registration is serialized.
type Registry struct {
	mu          sync.RWMutex
	byIndicator map[string][]repository.Provider
	names       []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byIndicator: make(map[string][]repository.Provider),
	}
}

// Register appends the provider to every indicator it declares. First
// registered wins: a specialized source registered before a generic one is
// tried first for the indicators both serve.
func (r *Registry) Register(p repository.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append(r.names, p.Name())
	for _, indicator := range p.Indicators() {
		r.byIndicator[indicator] = append(r.byIndicator[indicator], p)
	}
}

// ProvidersFor returns a copy of the priority-ordered list for an indicator,
// empty if the indicator is unknown.
func (r *Registry) ProvidersFor(indicator string) []repository.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.byIndicator[indicator]
	out := make([]repository.Provider, len(providers))
	copy(out, providers)
	return out
}

// AllIndicators returns the sorted union of indicators across all registered
// providers. Discovery surface, not on the hot path.
func (r *Registry) AllIndicators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byIndicator))
	for indicator := range r.byIndicator {
		out = append(out, indicator)
	}
	sort.Strings(out)
	return out
}

// Names lists registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// SetPriority reorders one indicator's provider list to match names.
// Unknown names are ignored; providers not listed keep their relative order
// after the listed ones.
func (r *Registry) SetPriority(indicator string, names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.byIndicator[indicator]
	if len(current) == 0 {
		return
	}

	byName := make(map[string]repository.Provider, len(current))
	for _, p := range current {
		byName[p.Name()] = p
	}

	reordered := make([]repository.Provider, 0, len(current))
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		if p, ok := byName[name]; ok && !picked[name] {
			reordered = append(reordered, p)
			picked[name] = true
		}
	}
	for _, p := range current {
		if !picked[p.Name()] {
			reordered = append(reordered, p)
		}
	}

	r.byIndicator[indicator] = reordered
}
