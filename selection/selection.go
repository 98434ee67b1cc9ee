// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package selection implements source selection: for each triple pattern in
// a query, determine which federation members can contribute matching
// statements, using the cache where possible and falling back to parallel
// remote ASK probes otherwise.
package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/cache"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/scheduler"
)

// Selector performs source selection for one query. It is not safe for
// concurrent use by multiple goroutines beyond the internal parallelism of
// Select itself; create one Selector per query.
type Selector struct {
	endpoints []*endpoint.Endpoint
	cache     *cache.Cache
	scheduler *scheduler.Scheduler
	queryInfo *queryctx.QueryInfo

	mu sync.Mutex
	// stmtSources is keyed by SubQuery, not by the raw TriplePattern: two
	// patterns that differ only in variable naming (e.g. "?s <p> ?o" and
	// "?a <p> ?b") normalize to the same SubQuery and must resolve to the
	// same source set from a single set of probes, per the cache's
	// variable-naming-independence contract.
	stmtSources map[model.SubQuery][]source
}

type source struct {
	endpoint *endpoint.Endpoint
	local    bool
}

// New returns a Selector that considers the given endpoints, using cache to
// short-circuit remote probes and scheduler to run the probes that are
// needed in parallel.
func New(endpoints []*endpoint.Endpoint, c *cache.Cache, sched *scheduler.Scheduler, qi *queryctx.QueryInfo) *Selector {
	return &Selector{
		endpoints:   endpoints,
		cache:       c,
		scheduler:   sched,
		queryInfo:   qi,
		stmtSources: make(map[model.SubQuery][]source),
	}
}

// checkTask pairs a pattern awaiting a remote probe with the endpoint to
// probe it against. subQuery is the pattern's normalized cache/dedup key;
// pattern is retained to pass the original variable names to Ask (the
// endpoint only cares about the pattern's structure, but keeping the
// caller's own pattern around avoids reconstructing one from subQuery).
type checkTask struct {
	pattern  model.TriplePattern
	subQuery model.SubQuery
	endpoint *endpoint.Endpoint
}

// Select resolves sources for every pattern in patterns and returns, for
// each, the corresponding algebra leaf node: an ExclusiveStatement if
// exactly one source was found, a StatementSourcePattern if more than one
// was found, or an EmptyStatementPattern if none were. Patterns that
// normalize to the same SubQuery (the same shape up to variable naming),
// whether the same TriplePattern value repeated or two differently-named
// patterns, are probed only once and share the resolved source set.
//
// Select blocks until every required remote probe has completed, failed, or
// the query's deadline has passed.
func (s *Selector) Select(ctx context.Context, patterns []model.TriplePattern) ([]algebra.Node, error) {
	var pending []checkTask

	for _, tp := range patterns {
		sub := model.WildcardKey(tp)

		s.mu.Lock()
		_, already := s.stmtSources[sub]
		if !already {
			s.stmtSources[sub] = nil
		}
		s.mu.Unlock()
		if already {
			continue
		}

		for _, ep := range s.endpoints {
			s.queryInfo.IncSourceSelectionRequests()
			assurance := s.cache.CanProvideStatements(sub, ep.ID())
			switch assurance {
			case cache.HasLocalStatements:
				s.queryInfo.IncSourceSelectionCacheHit()
				s.addSource(sub, ep, true)
			case cache.HasRemoteStatements:
				s.queryInfo.IncSourceSelectionCacheHit()
				s.addSource(sub, ep, false)
			case cache.None:
				s.queryInfo.IncSourceSelectionCacheHit()
				// no source added
			case cache.PossiblyHasStatements:
				pending = append(pending, checkTask{pattern: tp, subQuery: sub, endpoint: ep})
			default:
				return nil, fmt.Errorf("selection: unexpected cache assurance %v", assurance)
			}
		}
	}

	if len(pending) > 0 {
		if err := s.runProbes(ctx, pending); err != nil {
			return nil, err
		}
	}

	nodes := make([]algebra.Node, len(patterns))
	for i, tp := range patterns {
		s.mu.Lock()
		sources := s.stmtSources[model.WildcardKey(tp)]
		s.mu.Unlock()
		nodes[i] = toNode(tp, sources)
	}
	return nodes, nil
}

func toNode(tp model.TriplePattern, sources []source) algebra.Node {
	switch len(sources) {
	case 0:
		return &algebra.EmptyStatementPattern{Pattern: tp}
	case 1:
		return &algebra.ExclusiveStatement{Pattern: tp, Endpoint: sources[0].endpoint}
	default:
		eps := make([]*endpoint.Endpoint, len(sources))
		for i, src := range sources {
			eps[i] = src.endpoint
		}
		return &algebra.StatementSourcePattern{Pattern: tp, Endpoints: eps}
	}
}

func (s *Selector) addSource(sub model.SubQuery, ep *endpoint.Endpoint, local bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stmtSources[sub] = append(s.stmtSources[sub], source{endpoint: ep, local: local})
}

// runProbes dispatches one remote ASK per pending (pattern, endpoint) pair
// to s.scheduler and blocks until they have all completed, one of them
// aborts the query, or the deadline passes. This mirrors the
// CountDownLatch-based fan-out/fan-in the original engine used, but built
// from a WaitGroup plus the query's own context deadline.
func (s *Selector) runProbes(ctx context.Context, pending []checkTask) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(pending))

	for _, task := range pending {
		task := task
		wg.Add(1)
		s.scheduler.Schedule(ctx, scheduler.TaskFunc(func(ctx context.Context) error {
			defer wg.Done()
			err := s.probe(ctx, task)
			if err != nil {
				errs <- err
				s.queryInfo.Abort(err)
			}
			return err
		}))
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
		return fmt.Errorf("selection: source selection did not complete before the query deadline: %w", ctx.Err())
	}

	select {
	case err := <-errs:
		return fmt.Errorf("selection: error checking sources: %w", err)
	default:
		return nil
	}
}

func (s *Selector) probe(ctx context.Context, task checkTask) error {
	src, err := task.endpoint.TripleSource()
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", task.endpoint.ID(), err)
	}
	hasResults, err := src.Ask(ctx, task.pattern, model.BindingSet{})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"endpoint": task.endpoint.ID(),
			"pattern":  task.pattern,
		}).WithError(err).Debug("source selection probe failed")
		return fmt.Errorf("checking results for endpoint %s: %w", task.endpoint.ID(), err)
	}

	s.cache.UpdateEntry(task.subQuery, task.endpoint.ID(), hasResults, task.endpoint.IsLocal())
	if hasResults {
		s.addSource(task.subQuery, task.endpoint, task.endpoint.IsLocal())
	}
	return nil
}

// RelevantEndpoints returns the set of endpoints that contributed at least
// one source across every pattern resolved so far by s.
func (s *Selector) RelevantEndpoints() []*endpoint.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[endpoint.ID]*endpoint.Endpoint)
	for _, sources := range s.stmtSources {
		for _, src := range sources {
			seen[src.endpoint.ID()] = src.endpoint
		}
	}
	out := make([]*endpoint.Endpoint, 0, len(seen))
	for _, ep := range seen {
		out = append(out, ep)
	}
	return out
}
