// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the configuration for a fedx engine instance,
// typically loaded from a JSON file on disk.
package config

import "time"

// Fedx describes the configuration for one federation engine instance.
type Fedx struct {
	// Members lists the federation members (SPARQL endpoints, native stores)
	// the engine queries. Required; an engine with no members can select no
	// sources for any pattern.
	Members []Member `json:"members"`

	// Engine holds the tunables for the join/union worker pools and the
	// bound-join batching strategy.
	Engine Engine `json:"engine"`

	// Log configures the engine's structured log output.
	Log Log `json:"log"`

	// If non-nil, the configuration for distributed tracing (OpenTracing). If
	// nil, the engine will not collect traces.
	Tracing *Tracing `json:"tracing,omitempty"`

	// Configuration for the HTTP query/admin server. Ignored by the CLI
	// client, which talks to a running engine rather than embedding one.
	API *API `json:"api,omitempty"`
}

// Member describes one federation member as read from the config file. It
// maps directly onto endpoint.Config once resolved by the caller (the
// engine's startup code chooses the right endpoint.TripleSource factory
// for Type).
type Member struct {
	// ID must be unique among the engine's members.
	ID string `json:"id"`
	// Name is a human-readable label used in logs and diagnostics.
	Name string `json:"name"`
	// Type is one of "sparql", "remoteRepository", "native", or
	// "remoteResolvable"; see endpoint.Type.
	Type string `json:"type"`
	// Location is the SPARQL service URL for remote members, or a local
	// store identifier for native members.
	Location string `json:"location"`
	// Writable indicates the member accepts SPARQL Update, currently unused
	// by query evaluation but recorded for a future federated update path.
	Writable bool `json:"writable,omitempty"`
}

// Engine holds tunables for source selection, join ordering, and the two
// worker pools evaluation dispatches onto.
type Engine struct {
	// JoinWorkerThreads sizes the pool used for source-selection probes and
	// bound-join batches. Zero means use federation.Config's default.
	JoinWorkerThreads int `json:"joinWorkerThreads,omitempty"`
	// UnionWorkerThreads sizes the pool used for fanning out ambiguous
	// patterns and NUnion branches. Zero means use federation.Config's
	// default.
	UnionWorkerThreads int `json:"unionWorkerThreads,omitempty"`
	// BoundJoinBlockSize is the number of left-hand rows batched into one
	// VALUES-bound remote request. Zero means
	// rewrite.DefaultBoundJoinBatchSize.
	BoundJoinBlockSize int `json:"boundJoinBlockSize,omitempty"`
	// EnforceMaxQueryTime is a time.ParseDuration string ("30s", "2m") giving
	// the default per-query deadline. Empty means queries run with no
	// deadline unless they set MaxExecutionTime themselves.
	EnforceMaxQueryTime string `json:"enforceMaxQueryTime,omitempty"`
	// EnableMonitoring turns on the Prometheus metrics registered by the
	// stats package.
	EnableMonitoring bool `json:"enableMonitoring,omitempty"`
	// DebugQueryPlan is parsed from the config file, but no part of the
	// engine reads it: setting it does not log any query plan.
	DebugQueryPlan bool `json:"debugQueryPlan,omitempty"`
}

// MaxQueryTime parses EnforceMaxQueryTime, returning zero (no deadline) if
// it is unset.
func (e Engine) MaxQueryTime() (time.Duration, error) {
	if e.EnforceMaxQueryTime == "" {
		return 0, nil
	}
	return time.ParseDuration(e.EnforceMaxQueryTime)
}

// Log contains configuration describing how the engine writes its
// structured log output.
type Log struct {
	// Type selects the logrus formatter: "text" or "json". Empty defaults to
	// "text".
	Type string `json:"type"`
}

// A Locator specifies how to find endpoints to communicate with. For this
// purpose, an endpoint is a particular port on a server or service.
type Locator struct {
	// Either "static" or "kube".
	Type string `json:"type"`

	// Required for static locators; ignored otherwise. The host:port
	// endpoints that the locator will return.
	Addresses []string `json:"addresses,omitempty"`

	// Required for Kubernetes locators; ignored otherwise. A Kubernetes label
	// selector to filter pods in the current namespace.
	LabelSelector string `json:"labelSelector,omitempty"`
	// Required for Kubernetes locators; ignored otherwise. Within the
	// selected pods, ports with this name on any container are returned as
	// endpoints.
	PortName string `json:"portName,omitempty"`
}

// Tracing contains configuration related to distributed execution tracing.
type Tracing struct {
	// Must be "jaeger" (for now).
	Type string `json:"type"`

	// Endpoints that accept jaeger.thrift over HTTP directly from clients.
	Locator Locator `json:"locator"`
}

// API contains configuration for the HTTP server that accepts SPARQL
// Protocol queries and serves admin/metrics endpoints.
type API struct {
	// The host:port or :port on which to serve SPARQL query requests.
	// Required.
	HTTPAddress string `json:"httpAddress"`

	// If non-empty, the host:port or :port on which to serve Prometheus
	// metrics. If empty (or unset), metrics are served at /metrics on
	// HTTPAddress.
	MetricsAddress string `json:"metricsAddress,omitempty"`
}
