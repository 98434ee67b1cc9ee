// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package stats registers the engine's Prometheus metrics and exposes a few
// small recording functions the federation and scheduler packages call into.
// Nothing else in the module needs to know these are Prometheus metrics
// specifically; a future alternate sink could replace this package without
// touching any caller.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/util/metrics"
)

// Metrics holds every counter, gauge, and histogram the engine reports.
type Metrics struct {
	QueriesTotal             prometheus.Counter
	QueryDuration            prometheus.Histogram
	SourceSelectionProbes    prometheus.Counter
	SourceSelectionCacheHits prometheus.Counter
	RemoteRequestsTotal      prometheus.Counter
	ResultsProducedTotal     prometheus.Counter
	JoinQueueDepth           prometheus.Gauge
	UnionQueueDepth          prometheus.Gauge
}

// M is the process-wide set of registered metrics. It is a package-level
// var, matching the convention every Prometheus-reporting package in this
// codebase uses, so the metrics are registered exactly once at process
// start rather than per-Federation instance.
var M = newMetrics(prometheus.DefaultRegisterer)

func newMetrics(registerer prometheus.Registerer) Metrics {
	mr := metrics.Registry{R: registerer}
	return Metrics{
		QueriesTotal: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "fedx",
			Subsystem: "federation",
			Name:      "queries_total",
			Help:      `The number of queries the engine has finished evaluating.`,
		}),
		QueryDuration: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fedx",
			Subsystem: "federation",
			Name:      "query_duration_seconds",
			Help:      `How long each query took from Evaluate to its solution stream being closed.`,
			Buckets:   prometheus.DefBuckets,
		}),
		SourceSelectionProbes: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "fedx",
			Subsystem: "selection",
			Name:      "requests_total",
			Help:      `The number of (pattern, endpoint) pairs source selection has considered.`,
		}),
		SourceSelectionCacheHits: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "fedx",
			Subsystem: "selection",
			Name:      "cache_hits_total",
			Help:      `The number of source-selection checks answered from the cache without a remote probe.`,
		}),
		RemoteRequestsTotal: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "fedx",
			Subsystem: "exec",
			Name:      "remote_requests_total",
			Help:      `The number of SPARQL requests issued to remote federation members during evaluation.`,
		}),
		ResultsProducedTotal: mr.NewCounter(prometheus.CounterOpts{
			Namespace: "fedx",
			Subsystem: "exec",
			Name:      "results_produced_total",
			Help:      `The number of solution rows the engine has produced across all queries.`,
		}),
		JoinQueueDepth: mr.NewGauge(prometheus.GaugeOpts{
			Namespace: "fedx",
			Subsystem: "scheduler",
			Name:      "join_queue_depth",
			Help:      `The number of tasks waiting in the join scheduler's queue, sampled at query start.`,
		}),
		UnionQueueDepth: mr.NewGauge(prometheus.GaugeOpts{
			Namespace: "fedx",
			Subsystem: "scheduler",
			Name:      "union_queue_depth",
			Help:      `The number of tasks waiting in the union scheduler's queue, sampled at query start.`,
		}),
	}
}

// RecordQuery folds a finished query's per-query counters into m's
// process-wide totals and observes its wall-clock duration.
func (m Metrics) RecordQuery(duration time.Duration, qi *queryctx.QueryInfo) {
	m.QueriesTotal.Inc()
	m.QueryDuration.Observe(duration.Seconds())
	snap := qi.Snapshot()
	m.SourceSelectionProbes.Add(float64(snap.SourceSelectionRequests))
	m.SourceSelectionCacheHits.Add(float64(snap.SourceSelectionCacheHit))
	m.RemoteRequestsTotal.Add(float64(snap.RemoteRequests))
	m.ResultsProducedTotal.Add(float64(snap.ResultsProduced))
}

// SetJoinQueueDepth reports the join scheduler's current queue length.
func (m Metrics) SetJoinQueueDepth(n int) { m.JoinQueueDepth.Set(float64(n)) }

// SetUnionQueueDepth reports the union scheduler's current queue length.
func (m Metrics) SetUnionQueueDepth(n int) { m.UnionQueueDepth.Set(float64(n)) }

// RecordQuery is a convenience wrapper around M.RecordQuery.
func RecordQuery(duration time.Duration, qi *queryctx.QueryInfo) { M.RecordQuery(duration, qi) }

// SetJoinQueueDepth is a convenience wrapper around M.SetJoinQueueDepth.
func SetJoinQueueDepth(n int) { M.SetJoinQueueDepth(n) }

// SetUnionQueueDepth is a convenience wrapper around M.SetUnionQueueDepth.
func SetUnionQueueDepth(n int) { M.SetUnionQueueDepth(n) }
