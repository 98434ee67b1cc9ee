// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package endpoint models the federation members: their identity, their
// connection lifecycle, and the TripleSource each one exposes to the rest of
// the engine. Two TripleSource implementations ship here: a SPARQL 1.1
// Protocol client for remote members, and an in-process store for members
// that are co-located with the engine.
package endpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/thbinhqn/fedx/model"
)

// ID uniquely names a federation member within a Registry.
type ID string

// Type classifies how an Endpoint is reached.
type Type uint8

const (
	// SparqlEndpoint is a remote member reached over the SPARQL 1.1 Protocol
	// (HTTP, SPARQL Query and optionally SPARQL Update).
	SparqlEndpoint Type = iota
	// RemoteRepository is a remote member reached through a repository
	// protocol other than plain SPARQL over HTTP (e.g. an RDF4J/Sesame HTTP
	// repository). It is modeled the same as SparqlEndpoint at this layer;
	// the distinction exists for configuration and monitoring.
	RemoteRepository
	// NativeStore is a store co-located in the same process as the engine.
	// Its TripleSource never makes a network call, so source-selection
	// probes against it are recorded as HasLocalStatements rather than
	// HasRemoteStatements.
	NativeStore
	// RemoteResolvable is a remote member that additionally supports
	// server-side result materialization for bound joins (VALUES-style
	// batched sub-queries); see UsePreparedQuery.
	RemoteResolvable
)

func (t Type) String() string {
	switch t {
	case SparqlEndpoint:
		return "SparqlEndpoint"
	case RemoteRepository:
		return "RemoteRepository"
	case NativeStore:
		return "NativeStore"
	case RemoteResolvable:
		return "RemoteResolvable"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Local reports whether endpoints of this type are co-located with the
// engine, meaning probes against them never cross the network.
func (t Type) Local() bool { return t == NativeStore }

// Config describes a federation member as read from the member
// configuration file (see the config package).
type Config struct {
	ID       ID
	Name     string
	Type     Type
	Location string // SPARQL service URL, or a local store path for NativeStore
	Writable bool
}

// Endpoint is one federation member. Its identity (ID, Name, Type, Location)
// is immutable after construction; Initialize/Shutdown manage the mutable
// lifecycle of the underlying TripleSource connection.
type Endpoint struct {
	id       ID
	name     string
	typ      Type
	location string
	writable bool

	mu          sync.Mutex
	initialized bool
	source      TripleSource
	factory     func() (TripleSource, error)
}

// New constructs an Endpoint from cfg. factory builds the TripleSource on
// first Initialize and again after Repair; it is typically
// NewSparqlTripleSource or NewLocalTripleSource bound to cfg.Location.
func New(cfg Config, factory func() (TripleSource, error)) *Endpoint {
	return &Endpoint{
		id:       cfg.ID,
		name:     cfg.Name,
		typ:      cfg.Type,
		location: cfg.Location,
		writable: cfg.Writable,
		factory:  factory,
	}
}

func (e *Endpoint) ID() ID             { return e.id }
func (e *Endpoint) Name() string       { return e.name }
func (e *Endpoint) Type() Type         { return e.typ }
func (e *Endpoint) Location() string   { return e.location }
func (e *Endpoint) Writable() bool     { return e.writable }
func (e *Endpoint) IsLocal() bool      { return e.typ.Local() }

// Initialize builds the endpoint's TripleSource, if it has not been built
// yet. It is safe to call concurrently and safe to call more than once.
func (e *Endpoint) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}
	src, err := e.factory()
	if err != nil {
		return fmt.Errorf("endpoint %s: initialize: %w", e.id, err)
	}
	e.source = src
	e.initialized = true
	return nil
}

// TripleSource returns the endpoint's TripleSource, initializing it on
// first use if necessary.
func (e *Endpoint) TripleSource() (TripleSource, error) {
	e.mu.Lock()
	if e.initialized {
		src := e.source
		e.mu.Unlock()
		return src, nil
	}
	e.mu.Unlock()
	if err := e.Initialize(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source, nil
}

// Repair discards the current TripleSource and rebuilds it, for use after a
// connection error that might be transient (e.g. the remote endpoint
// restarted). Callers should retry the failed operation once after Repair
// succeeds, and give up otherwise.
func (e *Endpoint) Repair() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source != nil {
		if closer, ok := e.source.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
	src, err := e.factory()
	if err != nil {
		e.initialized = false
		e.source = nil
		return fmt.Errorf("endpoint %s: repair: %w", e.id, err)
	}
	e.source = src
	e.initialized = true
	return nil
}

// Shutdown releases the endpoint's TripleSource.
func (e *Endpoint) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized || e.source == nil {
		return nil
	}
	var err error
	if closer, ok := e.source.(interface{ Close() error }); ok {
		err = closer.Close()
	}
	e.initialized = false
	e.source = nil
	return err
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s[%s](%s)", e.name, e.typ, e.id)
}

// TripleSource is the per-endpoint evaluation surface that the rest of the
// engine uses: probing for a single pattern's statements, running ASK
// probes during source selection, and evaluating full SPARQL query strings
// during bound-join and exclusive-group execution.
type TripleSource interface {
	// GetStatements returns every stored statement matching the given
	// (possibly partially bound) triple pattern.
	GetStatements(ctx context.Context, tp model.TriplePattern) (Stream[model.Statement], error)

	// Ask reports whether tp, with bindings applied, matches at least one
	// statement. Implementations that lack a native ASK form (e.g. a
	// resolvable remote that only exposes SELECT) fall back to a SELECT
	// with LIMIT 1.
	Ask(ctx context.Context, tp model.TriplePattern, bindings model.BindingSet) (bool, error)

	// Evaluate runs a full SPARQL query string (a SELECT, typically built by
	// the bound-join batching logic) and streams back its solutions.
	Evaluate(ctx context.Context, sparql string) (Stream[model.BindingSet], error)

	// UsePreparedQuery reports whether Evaluate should be passed pre-built
	// VALUES-bound query text (true) or whether the caller should instead
	// issue one query per input binding (false, for endpoints whose
	// protocol or query-length limits make batching impractical).
	UsePreparedQuery() bool
}
