// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package joinorder

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

func testEndpoint(id string) *endpoint.Endpoint {
	return endpoint.New(endpoint.Config{ID: endpoint.ID(id), Type: endpoint.SparqlEndpoint},
		func() (endpoint.TripleSource, error) { return endpoint.NewLocalTripleSource(), nil })
}

func TestGreedyOrderPrefersFewerFreeVariables(t *testing.T) {
	ep := testEndpoint("ep1")
	// three free vars
	wide := mustTP(t, model.NewVariable("a"), model.NewVariable("b"), model.NewVariable("c"))
	// one free var
	narrow := mustTP(t, model.NewIRI("x"), model.NewIRI("p"), model.NewVariable("c"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.StatementSourcePattern{Pattern: wide, Endpoints: []*endpoint.Endpoint{ep}},
		&algebra.ExclusiveStatement{Pattern: narrow, Endpoint: ep},
	}}

	out := Order(tree).(*algebra.NJoin)
	require.Len(t, out.Children, 2)
	_, firstIsExclusive := out.Children[0].(*algebra.ExclusiveStatement)
	assert.True(t, firstIsExclusive, "the narrower, exclusive pattern should be evaluated first")
}

func TestGreedyOrderPrefersExclusiveOverMultiSourceAtEqualVars(t *testing.T) {
	ep := testEndpoint("ep1")
	tp1 := mustTP(t, model.NewIRI("x"), model.NewIRI("p1"), model.NewVariable("c"))
	tp2 := mustTP(t, model.NewIRI("y"), model.NewIRI("p2"), model.NewVariable("d"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.StatementSourcePattern{Pattern: tp1, Endpoints: []*endpoint.Endpoint{ep}},
		&algebra.ExclusiveStatement{Pattern: tp2, Endpoint: ep},
	}}

	out := Order(tree).(*algebra.NJoin)
	_, firstIsExclusive := out.Children[0].(*algebra.ExclusiveStatement)
	assert.True(t, firstIsExclusive)
}

func TestGreedyOrderPicksGreatestOverlapNext(t *testing.T) {
	ep := testEndpoint("ep1")
	first := mustTP(t, model.NewVariable("a"), model.NewIRI("p0"), model.NewVariable("b"))
	overlapsMore := mustTP(t, model.NewVariable("b"), model.NewVariable("c"), model.NewIRI("x"))
	overlapsLess := mustTP(t, model.NewVariable("q"), model.NewVariable("r"), model.NewIRI("y"))

	tree := &algebra.NJoin{Children: []algebra.Node{
		&algebra.ExclusiveStatement{Pattern: first, Endpoint: ep},
		&algebra.StatementSourcePattern{Pattern: overlapsLess, Endpoints: []*endpoint.Endpoint{ep}},
		&algebra.StatementSourcePattern{Pattern: overlapsMore, Endpoints: []*endpoint.Endpoint{ep}},
	}}

	out := Order(tree).(*algebra.NJoin)
	require.Len(t, out.Children, 3)
	second, ok := out.Children[1].(*algebra.StatementSourcePattern)
	require.True(t, ok)
	assert.Equal(t, overlapsMore, second.Pattern)
}
