// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package federation is the engine's top-level object: it owns the member
// registry, the source-selection cache, and the two worker pools, and wires
// them together with selection, rewrite, joinorder, and exec into a single
// prepare-and-evaluate pipeline. Everything else in this module is plumbing
// that federation composes; nothing above this package understands how a
// query actually gets answered.
package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/cache"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/exec"
	"github.com/thbinhqn/fedx/joinorder"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/rewrite"
	"github.com/thbinhqn/fedx/scheduler"
	"github.com/thbinhqn/fedx/selection"
	"github.com/thbinhqn/fedx/stats"
	"github.com/thbinhqn/fedx/util/clocks"
)

// Config configures one Federation instance.
type Config struct {
	// JoinWorkers sizes the pool used for source-selection probes and
	// bound-join batches. Zero defaults to 8.
	JoinWorkers int
	// UnionWorkers sizes the pool used for fanning out StatementSourcePattern
	// and NUnion evaluation. Zero defaults to 8.
	UnionWorkers int
	// BoundJoinBatchSize overrides rewrite.DefaultBoundJoinBatchSize.
	BoundJoinBatchSize int
	// DefaultQueryTimeout is used for a Query with no MaxExecutionTime of its
	// own. Zero means queries run with no deadline unless they set one.
	DefaultQueryTimeout time.Duration
	// Clock lets tests substitute clocks.NewMock(). Nil defaults to
	// clocks.Wall.
	Clock clocks.Source
	// EnableMonitoring reports per-query counters and scheduler queue depths
	// to the process-wide Prometheus registry (see the stats package). It
	// defaults to off so unit tests don't pollute prometheus.DefaultRegisterer.
	EnableMonitoring bool
}

// Federation is a running engine instance: a set of member endpoints plus
// the shared infrastructure every query's evaluation passes through.
type Federation struct {
	registry       *endpoint.Registry
	cache          *cache.Cache
	joinScheduler  *scheduler.Scheduler
	unionScheduler *scheduler.Scheduler
	clock          clocks.Source
	batchSize      int
	defaultTimeout time.Duration
	monitoring     bool
}

// New constructs a Federation with no members registered yet. Call
// AddEndpoint to register federation members before running queries.
func New(cfg Config) *Federation {
	joinWorkers := cfg.JoinWorkers
	if joinWorkers < 1 {
		joinWorkers = 8
	}
	unionWorkers := cfg.UnionWorkers
	if unionWorkers < 1 {
		unionWorkers = 8
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clocks.Wall
	}
	return &Federation{
		registry:       endpoint.NewRegistry(),
		cache:          cache.New(),
		joinScheduler:  scheduler.New("join", joinWorkers),
		unionScheduler: scheduler.New("union", unionWorkers),
		clock:          clock,
		batchSize:      cfg.BoundJoinBatchSize,
		defaultTimeout: cfg.DefaultQueryTimeout,
		monitoring:     cfg.EnableMonitoring,
	}
}

// AddEndpoint constructs an Endpoint from cfg and factory, registers it, and
// eagerly initializes its TripleSource so a bad connection is reported at
// registration time rather than on a query's critical path.
func (f *Federation) AddEndpoint(cfg endpoint.Config, factory func() (endpoint.TripleSource, error)) error {
	ep := endpoint.New(cfg, factory)
	if err := f.registry.Add(ep); err != nil {
		return err
	}
	if err := ep.Initialize(); err != nil {
		f.registry.Remove(cfg.ID)
		return err
	}
	return nil
}

// RemoveEndpoint unregisters and shuts down the member with the given ID.
func (f *Federation) RemoveEndpoint(id endpoint.ID) error {
	return f.registry.Remove(id)
}

// Endpoints returns every registered member, ordered by ID.
func (f *Federation) Endpoints() []*endpoint.Endpoint {
	return f.registry.All()
}

// Cache exposes the source-selection cache, mainly so an admin interface can
// report its size or clear it between test runs.
func (f *Federation) Cache() *cache.Cache { return f.cache }

// FilterClause is one SPARQL FILTER applied over the BGP formed by a
// Query's Patterns, evaluated after the patterns' joins but before
// projection.
type FilterClause struct {
	Expr algebra.FilterExpr
	Text string
}

// Query describes one request against the federation: a basic graph
// pattern (Patterns), optional filters, an optional projection, and an
// optional per-query execution deadline.
type Query struct {
	Patterns []model.TriplePattern
	Filters  []FilterClause
	// Select restricts the output to these variables. A nil or empty Select
	// projects every variable bound anywhere in Patterns.
	Select model.VarSet
	// MaxExecutionTime overrides the Federation's DefaultQueryTimeout for
	// this query. Zero means "use the default".
	MaxExecutionTime time.Duration
}

// Result pairs a query's solution stream with the QueryInfo tracking its
// progress, so a caller can inspect Stats or Abort the query after
// Evaluate has already returned.
type Result struct {
	Stream endpoint.Stream[model.BindingSet]
	Info   *queryctx.QueryInfo
}

// Evaluate runs q end to end: source selection, exclusive-group and
// bound-join rewriting, greedy join ordering, and evaluation. The returned
// stream must be closed by the caller (directly or by draining it with
// endpoint.Collect) to release any buffered remote connections and the
// per-query deadline context.
func (f *Federation) Evaluate(ctx context.Context, q Query) (*Result, error) {
	if len(q.Patterns) == 0 {
		return nil, fmt.Errorf("federation: query has no patterns")
	}

	timeout := q.MaxExecutionTime
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}
	qi := queryctx.New(f.clock, renderQueryText(q), timeout)

	if f.monitoring {
		stats.SetJoinQueueDepth(f.joinScheduler.QueueLen())
		stats.SetUnionQueueDepth(f.unionScheduler.QueueLen())
	}

	var queryCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := qi.Deadline(); ok {
		queryCtx, cancel = context.WithDeadline(ctx, deadline)
	} else {
		queryCtx, cancel = context.WithCancel(ctx)
	}
	qi.SetCancelFunc(cancel)

	sel := selection.New(f.registry.All(), f.cache, f.joinScheduler, qi)
	nodes, err := sel.Select(queryCtx, q.Patterns)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("federation: source selection: %w", err)
	}

	var plan algebra.Node
	if len(nodes) == 1 {
		plan = nodes[0]
	} else {
		plan = &algebra.NJoin{Children: nodes}
	}
	for _, clause := range q.Filters {
		plan = &algebra.Filter{Child: plan, Expr: clause.Expr, Text: clause.Text}
	}

	plan = rewrite.Rewrite(plan, rewrite.Options{BoundJoinBatchSize: f.batchSize})
	plan = joinorder.Order(plan)

	if len(q.Select) > 0 {
		plan = &algebra.Projection{Child: plan, Select: q.Select}
	}

	ev := exec.New(f.joinScheduler, f.unionScheduler, qi)
	stream, err := ev.Evaluate(queryCtx, plan)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("federation: evaluation: %w", err)
	}

	return &Result{Stream: &countingStream{
		inner:      stream,
		qi:         qi,
		cancel:     cancel,
		clock:      f.clock,
		monitoring: f.monitoring,
	}, Info: qi}, nil
}

// renderQueryText builds a human-readable label for QueryInfo.Query, used
// only for diagnostics (logging, a future admin endpoint) -- it is not
// parsed back by anything.
func renderQueryText(q Query) string {
	parts := make([]string, len(q.Patterns))
	for i, tp := range q.Patterns {
		parts[i] = tp.String()
	}
	return strings.Join(parts, " . ")
}

// countingStream wraps the root solution stream to tally ResultsProduced
// and to release the per-query deadline context once the consumer is done,
// whether that's by exhausting the stream or by calling Close early.
type countingStream struct {
	inner      endpoint.Stream[model.BindingSet]
	qi         *queryctx.QueryInfo
	cancel     context.CancelFunc
	clock      clocks.Source
	monitoring bool
}

func (c *countingStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	row, ok, err := c.inner.Next(ctx)
	if ok {
		c.qi.AddResultsProduced(1)
	}
	return row, ok, err
}

func (c *countingStream) Close() error {
	err := c.inner.Close()
	c.cancel()
	if c.monitoring {
		stats.RecordQuery(c.clock.Now().Sub(c.qi.StartTime), c.qi)
	}
	return err
}

// Shutdown stops accepting new work on both schedulers, waits for in-flight
// tasks to finish, and shuts down every registered endpoint.
func (f *Federation) Shutdown() error {
	f.joinScheduler.Close()
	f.unionScheduler.Close()
	return f.registry.ShutdownAll()
}
