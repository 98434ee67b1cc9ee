// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package queryctx carries per-query bookkeeping: a unique ID, deadlines,
// an abort flag every long-running task checks, and simple counters used
// for diagnostics. Nothing in this package understands SPARQL; it is pure
// plumbing shared by source selection, scheduling, and evaluation.
package queryctx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thbinhqn/fedx/util/clocks"
)

var idCounter int64

// nextID returns a process-wide unique, monotonically increasing query ID.
func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// QueryInfo is created once per incoming query and threaded through source
// selection, rewriting, and evaluation. It is safe for concurrent use: many
// worker goroutines read Deadline and Aborted, and any of them may call
// Abort.
type QueryInfo struct {
	ID        int64
	Query     string
	StartTime time.Time
	deadline  time.Time // zero means no deadline

	mu       sync.Mutex
	aborted  bool
	abortErr error
	cancel   context.CancelFunc

	stats Stats
}

// Stats holds counters incremented over the life of a query, exposed for
// monitoring through the stats package.
type Stats struct {
	SourceSelectionRequests int64
	SourceSelectionCacheHit int64
	RemoteRequests          int64
	ResultsProduced         int64
}

// New creates a QueryInfo for query, starting now (as reported by clock).
// If maxExecutionTime is zero, the query has no deadline.
func New(clock clocks.Source, query string, maxExecutionTime time.Duration) *QueryInfo {
	qi := &QueryInfo{
		ID:        nextID(),
		Query:     query,
		StartTime: clock.Now(),
	}
	if maxExecutionTime > 0 {
		qi.deadline = qi.StartTime.Add(maxExecutionTime)
	}
	return qi
}

// Deadline returns the query's absolute deadline and whether one is set.
func (qi *QueryInfo) Deadline() (time.Time, bool) {
	if qi.deadline.IsZero() {
		return time.Time{}, false
	}
	return qi.deadline, true
}

// MaxRemaining returns how much time is left before Deadline, or the given
// fallback if there is no deadline. It never returns a negative duration.
func (qi *QueryInfo) MaxRemaining(clock clocks.Source, fallback time.Duration) time.Duration {
	if qi.deadline.IsZero() {
		return fallback
	}
	remaining := qi.deadline.Sub(clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetCancelFunc records the context.CancelFunc that Abort invokes once the
// query aborts. The federation manager calls this right after it derives
// the query's own cancellable context, so any in-flight remote HTTP call
// made with that context (or a child of it) is torn down promptly instead
// of running to completion after the query has already given up.
func (qi *QueryInfo) SetCancelFunc(cancel context.CancelFunc) {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	qi.cancel = cancel
}

// Abort marks the query as aborted due to err and, if a CancelFunc has been
// registered via SetCancelFunc, invokes it so blocked remote requests
// observe cancellation. Only the first call has an effect; later calls are
// no-ops so the first, root-cause error wins.
func (qi *QueryInfo) Abort(err error) {
	qi.mu.Lock()
	if qi.aborted {
		qi.mu.Unlock()
		return
	}
	qi.aborted = true
	qi.abortErr = err
	cancel := qi.cancel
	qi.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Aborted reports whether the query has been aborted, and if so, the error
// that caused it.
func (qi *QueryInfo) Aborted() (bool, error) {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	return qi.aborted, qi.abortErr
}

// Snapshot returns a snapshot of the query's counters.
func (qi *QueryInfo) Snapshot() Stats {
	return Stats{
		SourceSelectionRequests: atomic.LoadInt64(&qi.stats.SourceSelectionRequests),
		SourceSelectionCacheHit: atomic.LoadInt64(&qi.stats.SourceSelectionCacheHit),
		RemoteRequests:          atomic.LoadInt64(&qi.stats.RemoteRequests),
		ResultsProduced:         atomic.LoadInt64(&qi.stats.ResultsProduced),
	}
}

func (qi *QueryInfo) IncSourceSelectionRequests() { atomic.AddInt64(&qi.stats.SourceSelectionRequests, 1) }
func (qi *QueryInfo) IncSourceSelectionCacheHit()  { atomic.AddInt64(&qi.stats.SourceSelectionCacheHit, 1) }
func (qi *QueryInfo) IncRemoteRequests()           { atomic.AddInt64(&qi.stats.RemoteRequests, 1) }
func (qi *QueryInfo) AddResultsProduced(n int64)   { atomic.AddInt64(&qi.stats.ResultsProduced, n) }
