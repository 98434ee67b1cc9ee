// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

func mustTP(t *testing.T, s, p, o model.Term) model.TriplePattern {
	tp, err := model.NewTriplePattern(s, p, o)
	require.NoError(t, err)
	return tp
}

func testEndpoint(id string, local bool) *endpoint.Endpoint {
	typ := endpoint.SparqlEndpoint
	if local {
		typ = endpoint.NativeStore
	}
	return endpoint.New(endpoint.Config{ID: endpoint.ID(id), Type: typ},
		func() (endpoint.TripleSource, error) { return endpoint.NewLocalTripleSource(), nil })
}

func TestRewriteGroupsExclusivesAgainstSameEndpoint(t *testing.T) {
	ep := testEndpoint("ep1", false)
	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("p1"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("o"), model.NewIRI("p2"), model.NewVariable("z"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.ExclusiveStatement{Pattern: tp1, Endpoint: ep},
		&algebra.ExclusiveStatement{Pattern: tp2, Endpoint: ep},
	}}

	out := Rewrite(tree, Options{})
	group, ok := out.(*algebra.ExclusiveGroup)
	require.True(t, ok, "expected ExclusiveGroup, got %T", out)
	assert.Len(t, group.Patterns, 2)
	assert.Equal(t, ep.ID(), group.Endpoint.ID())
}

func TestRewriteLeavesMixedEndpointsAlone(t *testing.T) {
	ep1 := testEndpoint("ep1", false)
	ep2 := testEndpoint("ep2", false)
	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("p1"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("o"), model.NewIRI("p2"), model.NewVariable("z"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.ExclusiveStatement{Pattern: tp1, Endpoint: ep1},
		&algebra.ExclusiveStatement{Pattern: tp2, Endpoint: ep2},
	}}

	out := Rewrite(tree, Options{})
	_, isGroup := out.(*algebra.ExclusiveGroup)
	assert.False(t, isGroup)
}

func TestRewriteMarksBoundJoinForRemoteSourcePattern(t *testing.T) {
	ep := testEndpoint("ep1", false)
	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("p1"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("o"), model.NewIRI("p2"), model.NewVariable("z"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.EmptyStatementPattern{Pattern: tp1},
		&algebra.StatementSourcePattern{Pattern: tp2, Endpoints: []*endpoint.Endpoint{ep}},
	}}

	out := Rewrite(tree, Options{BoundJoinBatchSize: 10})
	bj, ok := out.(*algebra.BoundJoin)
	require.True(t, ok, "expected BoundJoin, got %T", out)
	assert.Equal(t, 10, bj.BatchSize)
}

func TestRewriteIsIdempotent(t *testing.T) {
	ep := testEndpoint("ep1", false)
	tp1 := mustTP(t, model.NewVariable("s"), model.NewIRI("p1"), model.NewVariable("o"))
	tp2 := mustTP(t, model.NewVariable("o"), model.NewIRI("p2"), model.NewVariable("z"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.ExclusiveStatement{Pattern: tp1, Endpoint: ep},
		&algebra.ExclusiveStatement{Pattern: tp2, Endpoint: ep},
	}}

	once := Rewrite(tree, Options{})
	twice := Rewrite(once, Options{})
	assert.Equal(t, once.String(), twice.String())
}
