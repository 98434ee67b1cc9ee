// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package metrics aids in defining Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry encapsulates metrics creation and registration.
type Registry struct {
	R prometheus.Registerer
}

// NewCounter returns a newly created and registered Prometheus Counter.
func (mr Registry) NewCounter(c prometheus.CounterOpts) prometheus.Counter {
	pm := prometheus.NewCounter(c)
	mr.R.MustRegister(pm)
	return pm
}

// NewCounterVec returns a newly created and registered Prometheus CounterVec.
func (mr Registry) NewCounterVec(c prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	pm := prometheus.NewCounterVec(c, labelNames)
	mr.R.MustRegister(pm)
	return pm
}

// NewGauge returns a newly created and registered Prometheus Gauge.
func (mr Registry) NewGauge(g prometheus.GaugeOpts) prometheus.Gauge {
	pm := prometheus.NewGauge(g)
	mr.R.MustRegister(pm)
	return pm
}

// NewSummary returns a newly created and registered Prometheus Summary.
func (mr Registry) NewSummary(s prometheus.SummaryOpts) prometheus.Summary {
	pm := prometheus.NewSummary(s)
	mr.R.MustRegister(pm)
	return pm
}

// NewHistogram returns a newly created and registered Prometheus Histogram.
func (mr Registry) NewHistogram(h prometheus.HistogramOpts) prometheus.Histogram {
	pm := prometheus.NewHistogram(h)
	mr.R.MustRegister(pm)
	return pm
}
