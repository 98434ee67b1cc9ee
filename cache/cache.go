// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the (subquery, endpoint) -> assurance cache used
// by source selection to short-circuit remote ASK probes. It is a
// process-wide, unbounded map: an open question noted in the design (see
// DESIGN.md) is that very long-lived federations should cap it with an LRU.
package cache

import (
	"sync"

	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

// Assurance is the cache's knowledge about whether an endpoint can answer a
// given subquery.
type Assurance uint8

const (
	// PossiblyHasStatements is returned for a key that has never been probed:
	// the caller must issue a remote or local check.
	PossiblyHasStatements Assurance = iota
	// HasLocalStatements means the endpoint's store is co-located and a prior
	// check found matching statements.
	HasLocalStatements
	// HasRemoteStatements means a remote probe found matching statements.
	HasRemoteStatements
	// None means a prior probe found no matching statements. Per the
	// monotonicity invariant, an entry that already holds a positive
	// assurance is never downgraded to None by a later negative probe; a
	// later positive probe does replace None. See UpdateEntry.
	None
)

func (a Assurance) String() string {
	switch a {
	case PossiblyHasStatements:
		return "PossiblyHasStatements"
	case HasLocalStatements:
		return "HasLocalStatements"
	case HasRemoteStatements:
		return "HasRemoteStatements"
	case None:
		return "None"
	default:
		return "Assurance(?)"
	}
}

// Positive reports whether a indicates the endpoint can contribute results.
func (a Assurance) Positive() bool {
	return a == HasLocalStatements || a == HasRemoteStatements
}

type key struct {
	sub model.SubQuery
	ep  endpoint.ID
}

// Cache maps SubQuery -> EndpointID -> Assurance. It is safe for concurrent
// use by many source-selection probes at once.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]Assurance
}

// New returns an empty, ready-to-use Cache.
func New() *Cache {
	return &Cache{entries: make(map[key]Assurance)}
}

// CanProvideStatements returns the cached assurance for (subquery, ep),
// defaulting to PossiblyHasStatements when there is no entry yet.
func (c *Cache) CanProvideStatements(sub model.SubQuery, ep endpoint.ID) Assurance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.entries[key{sub, ep}]; ok {
		return a
	}
	return PossiblyHasStatements
}

// UpdateEntry records the outcome of a probe of ep for sub. hasResults=false
// records None. hasResults=true records HasLocalStatements when local is
// true (the endpoint's data is co-located, no network round trip needed),
// otherwise HasRemoteStatements.
//
// A negative outcome never overwrites a positive one already recorded for
// the same key: this preserves the monotonicity invariant that a cache entry
// never regresses from a definite positive to None within a query's
// lifetime, even if two probes for the same subquery race.
func (c *Cache) UpdateEntry(sub model.SubQuery, ep endpoint.ID, hasResults bool, local bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{sub, ep}
	if !hasResults {
		if existing, ok := c.entries[k]; ok && existing.Positive() {
			return
		}
		c.entries[k] = None
		return
	}
	if local {
		c.entries[k] = HasLocalStatements
	} else {
		c.entries[k] = HasRemoteStatements
	}
}

// Len reports the number of cached (subquery, endpoint) entries. Exposed for
// tests and for exposing cache size in monitoring.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
