package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/praxishq/praxis/pkg/config"
)

// Registry manages the known chat-AI platforms and their adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty platform registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// NewRegistryFromConfig builds a registry with an HTTP adapter per enabled
// platform in the configuration.
func NewRegistryFromConfig(platforms []config.PlatformConfig) *Registry {
	r := NewRegistry()
	for _, p := range platforms {
		if !p.Enabled {
			continue
		}
		r.Register(p.ID, NewHTTPAdapter(p.ID, p.Endpoint, p.APIKey, p.Model, p.Timeout))
	}
	return r
}

// Register adds or replaces the adapter for a platform
func (r *Registry) Register(platform string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[platform] = adapter
}

// Get returns the adapter for a platform
func (r *Registry) Get(platform string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[platform]
	if !exists {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
	return adapter, nil
}

// Has reports whether a platform is registered
func (r *Registry) Has(platform string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[platform]
	return ok
}

// List returns all registered platform IDs, sorted for stable fan-out order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Send routes a prompt to the named platform's adapter
func (r *Registry) Send(ctx context.Context, platform, prompt string) (*Response, error) {
	adapter, err := r.Get(platform)
	if err != nil {
		return nil, err
	}
	return adapter.Send(ctx, prompt)
}
