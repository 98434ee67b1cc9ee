// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package selection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/cache"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/scheduler"
	"github.com/thbinhqn/fedx/util/clocks"
)

// countingLocalSource wraps a LocalTripleSource and counts Ask calls, so
// tests can assert on how many remote probes source selection actually
// issued.
type countingLocalSource struct {
	*endpoint.LocalTripleSource
	askCalls atomic.Int32
}

func (c *countingLocalSource) Ask(ctx context.Context, tp model.TriplePattern, bindings model.BindingSet) (bool, error) {
	c.askCalls.Add(1)
	return c.LocalTripleSource.Ask(ctx, tp, bindings)
}

func mustTP(t *testing.T, s, p, o model.Term) model.TriplePattern {
	tp, err := model.NewTriplePattern(s, p, o)
	require.NoError(t, err)
	return tp
}

func localEndpoint(t *testing.T, id string, statements ...model.Statement) *endpoint.Endpoint {
	ep := endpoint.New(endpoint.Config{ID: endpoint.ID(id), Type: endpoint.NativeStore},
		func() (endpoint.TripleSource, error) { return endpoint.NewLocalTripleSource(statements...), nil })
	require.NoError(t, ep.Initialize())
	return ep
}

func TestSelectResolvesExclusiveAndEmpty(t *testing.T) {
	ep1 := localEndpoint(t, "ep1", model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")})
	ep2 := localEndpoint(t, "ep2")

	c := cache.New()
	sched := scheduler.New("join", 2)
	defer sched.Close()
	qi := queryctx.New(clocks.NewMock(), "SELECT * WHERE { ?s <knows> ?o }", 5*time.Second)
	sel := New([]*endpoint.Endpoint{ep1, ep2}, c, sched, qi)

	tp := mustTP(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewVariable("o"))
	nodes, err := sel.Select(context.Background(), []model.TriplePattern{tp})
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	excl, ok := nodes[0].(*algebra.ExclusiveStatement)
	require.True(t, ok, "expected exactly one source to yield ExclusiveStatement, got %T", nodes[0])
	assert.Equal(t, ep1.ID(), excl.Endpoint.ID())
}

func TestSelectResolvesMultiSourceAndEmpty(t *testing.T) {
	stmt := model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")}
	ep1 := localEndpoint(t, "ep1", stmt)
	ep2 := localEndpoint(t, "ep2", stmt)
	ep3 := localEndpoint(t, "ep3")

	c := cache.New()
	sched := scheduler.New("join", 2)
	defer sched.Close()
	qi := queryctx.New(clocks.NewMock(), "q", 5*time.Second)
	sel := New([]*endpoint.Endpoint{ep1, ep2, ep3}, c, sched, qi)

	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("s"), model.NewIRI("nonexistent"), model.NewVariable("o"))
	nodes, err := sel.Select(context.Background(), []model.TriplePattern{tp1, tp2})
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	multi, ok := nodes[0].(*algebra.StatementSourcePattern)
	require.True(t, ok, "expected multiple sources, got %T", nodes[0])
	assert.Len(t, multi.Endpoints, 2)

	_, ok = nodes[1].(*algebra.EmptyStatementPattern)
	assert.True(t, ok, "expected no sources to yield EmptyStatementPattern, got %T", nodes[1])
}

func TestSelectDedupesRepeatedPattern(t *testing.T) {
	ep1 := localEndpoint(t, "ep1", model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")})
	c := cache.New()
	sched := scheduler.New("join", 2)
	defer sched.Close()
	qi := queryctx.New(clocks.NewMock(), "q", 5*time.Second)
	sel := New([]*endpoint.Endpoint{ep1}, c, sched, qi)

	tp := mustTP(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewVariable("o"))
	nodes, err := sel.Select(context.Background(), []model.TriplePattern{tp, tp})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, nodes[0], nodes[1])
}

func TestSelectDedupesDifferentlyNamedSamePattern(t *testing.T) {
	stmt := model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")}
	probes := &countingLocalSource{LocalTripleSource: endpoint.NewLocalTripleSource(stmt)}
	ep1 := endpoint.New(endpoint.Config{ID: "ep1", Type: endpoint.NativeStore},
		func() (endpoint.TripleSource, error) { return probes, nil })
	require.NoError(t, ep1.Initialize())

	c := cache.New()
	sched := scheduler.New("join", 2)
	defer sched.Close()
	qi := queryctx.New(clocks.NewMock(), "q", 5*time.Second)
	sel := New([]*endpoint.Endpoint{ep1}, c, sched, qi)

	// tp1 and tp2 differ only in variable naming, so they share a SubQuery
	// (see model.WildcardKey) and must be probed only once between them.
	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("a"), model.NewIRI("knows"), model.NewVariable("b"))
	nodes, err := sel.Select(context.Background(), []model.TriplePattern{tp1, tp2})
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	excl1, ok := nodes[0].(*algebra.ExclusiveStatement)
	require.True(t, ok, "expected ExclusiveStatement, got %T", nodes[0])
	assert.Equal(t, tp1, excl1.Pattern)
	excl2, ok := nodes[1].(*algebra.ExclusiveStatement)
	require.True(t, ok, "expected ExclusiveStatement, got %T", nodes[1])
	assert.Equal(t, tp2, excl2.Pattern)

	assert.Equal(t, int32(1), probes.askCalls.Load(), "differently-named patterns sharing a SubQuery must probe the endpoint only once")
}

func TestSelectCachesAcrossCalls(t *testing.T) {
	ep1 := localEndpoint(t, "ep1", model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")})
	c := cache.New()
	sched := scheduler.New("join", 2)
	defer sched.Close()
	qi := queryctx.New(clocks.NewMock(), "q", 5*time.Second)

	tp := mustTP(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewVariable("o"))

	sel1 := New([]*endpoint.Endpoint{ep1}, c, sched, qi)
	_, err := sel1.Select(context.Background(), []model.TriplePattern{tp})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	sel2 := New([]*endpoint.Endpoint{ep1}, c, sched, qi)
	_, err = sel2.Select(context.Background(), []model.TriplePattern{tp})
	require.NoError(t, err)
	assert.Equal(t, cache.HasLocalStatements, c.CanProvideStatements(model.WildcardKey(tp), ep1.ID()))
}
