// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/thbinhqn/fedx/util/parallel"
)

// Registry holds the set of federation members known to one engine
// instance. Unlike a package-level global, a Registry is owned by the
// federation manager that constructs it, so multiple engines can run in the
// same process with independent member sets (useful for tests).
type Registry struct {
	mu        sync.RWMutex
	endpoints map[ID]*Endpoint
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[ID]*Endpoint)}
}

// Add registers ep. It returns an error if an endpoint with the same ID is
// already registered.
func (r *Registry) Add(ep *Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.endpoints[ep.ID()]; exists {
		return fmt.Errorf("endpoint: duplicate endpoint id %q", ep.ID())
	}
	r.endpoints[ep.ID()] = ep
	return nil
}

// Remove unregisters and shuts down the endpoint with the given ID, if
// present.
func (r *Registry) Remove(id ID) error {
	r.mu.Lock()
	ep, ok := r.endpoints[id]
	if ok {
		delete(r.endpoints, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return ep.Shutdown()
}

// Get returns the endpoint with the given ID, if registered.
func (r *Registry) Get(id ID) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[id]
	return ep, ok
}

// All returns every registered endpoint, ordered by ID for determinism.
func (r *Registry) All() []*Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len reports the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// InitializeAll initializes every registered endpoint concurrently,
// returning the first error encountered. Initialize has no context
// parameter, so every endpoint finishes its attempt regardless of that
// first error.
func (r *Registry) InitializeAll() error {
	eps := r.All()
	return parallel.InvokeN(context.Background(), len(eps), func(_ context.Context, i int) error {
		return eps[i].Initialize()
	})
}

// ShutdownAll shuts down every registered endpoint concurrently, returning
// the first error encountered. Shutdown has no context parameter, so every
// endpoint finishes its attempt regardless of that first error.
func (r *Registry) ShutdownAll() error {
	eps := r.All()
	return parallel.InvokeN(context.Background(), len(eps), func(_ context.Context, i int) error {
		return eps[i].Shutdown()
	})
}
