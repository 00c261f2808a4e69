package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps each gateway to its adapter. It is filled once at startup.
type Registry struct {
	adapters map[Gateway]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Gateway]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Gateway()
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Gateway()] = a
}

// Get returns the adapter for a gateway. A known gateway without an adapter
// is a configuration problem, not a client error.
func (r *Registry) Get(gateway Gateway) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[gateway]
	if !ok {
		return nil, &Error{
			Kind:    KindConfiguration,
			Gateway: gateway,
			Message: "gateway is not registered",
			Err:     fmt.Errorf("no adapter for %q", gateway),
		}
	}
	return a, nil
}

// Gateways returns the registered gateways in a stable order
func (r *Registry) Gateways() []Gateway {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Gateway, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
