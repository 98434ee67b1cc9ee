// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package tracing assists with reporting OpenTracing traces to Jaeger.
package tracing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/thbinhqn/fedx/config"
	"github.com/thbinhqn/fedx/discovery/discoveryfactory"
)

// A Tracer reports OpenTracing traces to a server.
type Tracer struct {
	// If not nil, called by Close.
	close func()
}

// New constructs a tracer and sets it as the global opentracing tracer.
// Call this early on from main to initialize Jaeger/OpenTracing. The
// locator in cfg.Locator should resolve to ports that accept jaeger.thrift
// over HTTP directly from clients. If err == nil, the returned tracer
// should be Closed to clean up resources and flush its buffer before
// program exit; if err != nil, the returned tracer is nil.
func New(serviceName string, cfg *config.Tracing) (*Tracer, error) {
	if cfg == nil {
		log.Warn("skipping Jaeger setup: nil tracing configuration")
		return &Tracer{}, nil
	}
	collectors, err := discoveryfactory.NewLocator(context.TODO(), &cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger locator: %v", err)
	}
	jcfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
	}
	transport := newTransport(collectors)
	reporter := jaeger.NewRemoteReporter(transport)
	logger := (*logrusAdapter)(log.WithFields(log.Fields{"component": "jaeger"}))
	tracer, closer, err := jcfg.NewTracer(
		jaegercfg.Logger(logger),
		jaegercfg.Reporter(reporter),
		jaegercfg.ContribObserver(&contribObserver{}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Jaeger tracer: %v", err)
	}
	opentracing.SetGlobalTracer(tracer)
	return &Tracer{
		close: func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Warn("error shutting down Jaeger tracer")
			}
		},
	}, nil
}

// Close stops the Tracer and cleans up resources. It is not thread-safe.
func (t *Tracer) Close() {
	if t.close != nil {
		t.close()
	}
	t.close = nil
}

type logrusAdapter log.Entry

func (l *logrusAdapter) Error(msg string) {
	(*log.Entry)(l).Error(strings.TrimSpace(msg))
}

func (l *logrusAdapter) Infof(msg string, args ...interface{}) {
	(*log.Entry)(l).Infof(strings.TrimSpace(msg), args...)
}

type contribObserver struct{}

// OnStartSpan implements jaeger.ContribObserver.
func (m *contribObserver) OnStartSpan(
	span opentracing.Span,
	operationName string,
	options opentracing.StartSpanOptions,
) (jaeger.ContribSpanObserver, bool) {
	return &spanObserver{
		span:          span,
		operationName: operationName,
		start:         options.StartTime,
	}, true
}

// spanObserver implements jaeger.ContribSpanObserver, feeding a span's
// duration into a Prometheus metric when one has been attached via
// UpdateMetric. No package in this module calls UpdateMetric, so no span
// carries a metric.
type spanObserver struct {
	span          opentracing.Span
	start         time.Time
	operationName string

	metricLock sync.Mutex
	metric     Metric
}

func (o *spanObserver) OnSetOperationName(name string) {}

func (o *spanObserver) OnSetTag(key string, value interface{}) {
	if key == "metric" {
		if metric, ok := value.(Metric); ok {
			o.metricLock.Lock()
			o.metric = metric
			o.metricLock.Unlock()
		}
	}
}

func (o *spanObserver) OnFinish(options opentracing.FinishOptions) {
	dur := options.FinishTime.Sub(o.start)
	o.metricLock.Lock()
	if o.metric != nil {
		o.metric.Observe(dur.Seconds())
	}
	o.metricLock.Unlock()
}

// UpdateMetric arranges for metric to be updated with the duration of span,
// in seconds, once span finishes.
func UpdateMetric(span opentracing.Span, metric Metric) {
	span.SetTag("metric", stringableMetric{metric})
}

// Metric is satisfied by prometheus.Summary and prometheus.Histogram.
type Metric interface {
	prometheus.Metric
	Observe(float64)
}

type stringableMetric struct {
	Metric
}

// String returns the fully-qualified name of the metric, reported in the
// OpenTracing tag named "metric".
func (metric stringableMetric) String() string {
	s := metric.Desc().String()
	s = strings.TrimPrefix(s, `Desc{fqName: "`)
	i := strings.IndexByte(s, '"')
	if i < 0 {
		return ""
	}
	return s[:i]
}
