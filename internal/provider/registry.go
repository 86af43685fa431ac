package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Digital-Shane/title-scout/internal/media"
)

// Registry manages all available providers
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	priorities    map[string]int
	enabledStatus map[string]bool
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers:     make(map[string]Provider),
		priorities:    make(map[string]int),
		enabledStatus: make(map[string]bool),
	}
}

// Register adds an enabled provider to the registry
func (r *Registry) Register(name string, provider Provider, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	if len(provider.Kinds()) == 0 {
		return fmt.Errorf("provider %s serves no media kinds", name)
	}

	r.providers[name] = provider
	r.priorities[name] = priority
	r.enabledStatus[name] = true

	return nil
}

// Get returns a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	return provider, exists
}

// List returns all registered provider names, highest priority first
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(false)
}

func (r *Registry) sortedLocked(enabledOnly bool) []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		if enabledOnly && !r.enabledStatus[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.priorities[names[i]] != r.priorities[names[j]] {
			return r.priorities[names[i]] > r.priorities[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Enable enables a provider
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable disables a provider
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("provider %s not found", name)
	}
	r.enabledStatus[name] = enabled
	return nil
}

// IsEnabled reports whether name is registered and enabled
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledStatus[name]
}

// Enabled returns enabled providers serving kind, highest priority first
func (r *Registry) Enabled(kind media.Kind) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for _, name := range r.sortedLocked(true) {
		if p := r.providers[name]; Supports(p, kind) {
			out = append(out, p)
		}
	}
	return out
}

// ErrUnsupported is returned when a named provider is disabled or does not
// serve the requested kind.
var ErrUnsupported = errors.New("unsupported by provider")

// Searcher returns a searcher by name, or the highest priority enabled one
// serving kind when name is empty. A named provider must be enabled and
// serve kind.
func (r *Registry) Searcher(name string, kind media.Kind) (Searcher, error) {
	if name != "" {
		p, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("provider %s not found", name)
		}
		if !r.IsEnabled(name) {
			return nil, fmt.Errorf("provider %s is disabled: %w", name, ErrUnsupported)
		}
		if !Supports(p, kind) {
			return nil, fmt.Errorf("provider %s does not serve %s: %w", name, kind, ErrUnsupported)
		}
		s, ok := p.(Searcher)
		if !ok {
			return nil, fmt.Errorf("provider %s cannot search: %w", name, ErrUnsupported)
		}
		return s, nil
	}
	for _, p := range r.Enabled(kind) {
		if s, ok := p.(Searcher); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no enabled %s search provider", kind)
}

// ImageSources returns enabled image providers serving kind.
func (r *Registry) ImageSources(kind media.Kind) []ImagesFetcher {
	var out []ImagesFetcher
	for _, p := range r.Enabled(kind) {
		if f, ok := p.(ImagesFetcher); ok {
			out = append(out, f)
		}
	}
	return out
}
