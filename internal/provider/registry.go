package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all available backends
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]Fetcher
	priorities    map[string]int
	enabledStatus map[string]bool
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers:     make(map[string]Fetcher),
		priorities:    make(map[string]int),
		enabledStatus: make(map[string]bool),
	}
}

// Register adds a backend to the registry. Backends start disabled.
func (r *Registry) Register(name string, fetcher Fetcher, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	if err := ValidateCapabilities(fetcher.Capabilities()); err != nil {
		return fmt.Errorf("invalid provider capabilities for %s: %w", name, err)
	}

	r.providers[name] = fetcher
	r.priorities[name] = priority
	r.enabledStatus[name] = false

	return nil
}

// Get returns a backend by name
func (r *Registry) Get(name string) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetcher, exists := r.providers[name]
	return fetcher, exists
}

// List returns all registered backends, highest priority first
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if r.priorities[names[i]] == r.priorities[names[j]] {
			return names[i] < names[j]
		}
		return r.priorities[names[i]] > r.priorities[names[j]]
	})

	return names
}

// Enable enables a backend
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("provider %s not found", name)
	}

	r.enabledStatus[name] = true
	return nil
}

// IsEnabled reports whether name is registered and enabled.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledStatus[name]
}

// Select returns the named backend if it is enabled. An empty name picks the
// highest priority enabled backend.
func (r *Registry) Select(name string) (Fetcher, error) {
	if name != "" {
		fetcher, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("provider %s not found", name)
		}
		if !r.IsEnabled(name) {
			return nil, fmt.Errorf("provider %s is not enabled", name)
		}
		return fetcher, nil
	}

	for _, candidate := range r.List() {
		if r.IsEnabled(candidate) {
			fetcher, _ := r.Get(candidate)
			return fetcher, nil
		}
	}
	return nil, fmt.Errorf("no enabled provider")
}

// Searcher returns the named backend's search interface, if it has one.
func (r *Registry) Searcher(name string) (Searcher, bool) {
	fetcher, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	searcher, ok := fetcher.(Searcher)
	if !ok || !fetcher.Capabilities().SupportsSearch {
		return nil, false
	}
	return searcher, true
}
