// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/util/clocks"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordQueryFoldsSnapshotIntoTotals(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	clock := clocks.NewMock()
	qi := queryctx.New(clock, "SELECT * WHERE { ?s ?p ?o }", 0)
	qi.IncSourceSelectionRequests()
	qi.IncSourceSelectionRequests()
	qi.IncSourceSelectionCacheHit()
	qi.IncRemoteRequests()
	qi.AddResultsProduced(3)

	before := counterValue(t, m.QueriesTotal)
	m.RecordQuery(250*time.Millisecond, qi)
	require.Equal(t, before+1, counterValue(t, m.QueriesTotal))
	require.Equal(t, float64(2), counterValue(t, m.SourceSelectionProbes))
	require.Equal(t, float64(1), counterValue(t, m.SourceSelectionCacheHits))
	require.Equal(t, float64(1), counterValue(t, m.RemoteRequestsTotal))
	require.Equal(t, float64(3), counterValue(t, m.ResultsProducedTotal))
}

func TestSetQueueDepthGauges(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())
	m.JoinQueueDepth.Set(4)
	m.UnionQueueDepth.Set(2)

	var joinMetric, unionMetric dto.Metric
	require.NoError(t, m.JoinQueueDepth.Write(&joinMetric))
	require.NoError(t, m.UnionQueueDepth.Write(&unionMetric))
	require.Equal(t, float64(4), joinMetric.GetGauge().GetValue())
	require.Equal(t, float64(2), unionMetric.GetGauge().GetValue())
}
