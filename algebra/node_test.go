// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

func mustTP(t *testing.T, s, p, o model.Term) model.TriplePattern {
	tp, err := model.NewTriplePattern(s, p, o)
	require.NoError(t, err)
	return tp
}

func newTestEndpoint(id string) *endpoint.Endpoint {
	return endpoint.New(endpoint.Config{ID: endpoint.ID(id), Type: endpoint.NativeStore},
		func() (endpoint.TripleSource, error) { return endpoint.NewLocalTripleSource(), nil })
}

func TestNJoinVarsIsUnionOfChildren(t *testing.T) {
	tp1 := mustTP(t, model.NewVariable("x"), model.NewIRI("p"), model.NewVariable("y"))
	tp2 := mustTP(t, model.NewVariable("y"), model.NewIRI("q"), model.NewVariable("z"))
	join := &NJoin{Children: []Node{
		&EmptyStatementPattern{Pattern: tp1},
		&EmptyStatementPattern{Pattern: tp2},
	}}
	assert.Equal(t, model.NewVarSet("x", "y", "z"), join.Vars())
}

func TestExclusiveGroupVars(t *testing.T) {
	tp1 := mustTP(t, model.NewVariable("x"), model.NewIRI("p"), model.NewVariable("y"))
	tp2 := mustTP(t, model.NewVariable("y"), model.NewIRI("q"), model.NewVariable("z"))
	group := &ExclusiveGroup{Patterns: []model.TriplePattern{tp1, tp2}, Endpoint: newTestEndpoint("e1")}
	assert.Equal(t, model.NewVarSet("x", "y", "z"), group.Vars())
}

func TestWalkVisitsEveryNode(t *testing.T) {
	tp1 := mustTP(t, model.NewVariable("x"), model.NewIRI("p"), model.NewVariable("y"))
	tp2 := mustTP(t, model.NewVariable("y"), model.NewIRI("q"), model.NewVariable("z"))
	tree := &NJoin{Children: []Node{
		&EmptyStatementPattern{Pattern: tp1},
		&Filter{Child: &EmptyStatementPattern{Pattern: tp2}, Text: "?z > 1"},
	}}
	assert.Equal(t, 4, CountNodes(tree))
	assert.Len(t, Leaves(tree), 2)
}

// countingVisitor exercises the Visitor interface end to end.
type countingVisitor struct{ n int }

func (c *countingVisitor) VisitEmptyStatementPattern(*EmptyStatementPattern) error { c.n++; return nil }
func (c *countingVisitor) VisitExclusiveStatement(*ExclusiveStatement) error       { c.n++; return nil }
func (c *countingVisitor) VisitStatementSourcePattern(*StatementSourcePattern) error {
	c.n++
	return nil
}
func (c *countingVisitor) VisitExclusiveGroup(*ExclusiveGroup) error { c.n++; return nil }
func (c *countingVisitor) VisitNJoin(n *NJoin) error {
	c.n++
	for _, child := range n.Children {
		if err := child.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
func (c *countingVisitor) VisitNUnion(n *NUnion) error {
	c.n++
	for _, child := range n.Children {
		if err := child.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
func (c *countingVisitor) VisitFilter(n *Filter) error       { c.n++; return n.Child.Accept(c) }
func (c *countingVisitor) VisitProjection(n *Projection) error { c.n++; return n.Child.Accept(c) }
func (c *countingVisitor) VisitBoundJoin(n *BoundJoin) error {
	c.n++
	if err := n.Left.Accept(c); err != nil {
		return err
	}
	return n.Right.Accept(c)
}

func TestVisitorDispatch(t *testing.T) {
	tp := mustTP(t, model.NewVariable("x"), model.NewIRI("p"), model.NewVariable("y"))
	tree := &NUnion{Children: []Node{
		&EmptyStatementPattern{Pattern: tp},
		&ExclusiveStatement{Pattern: tp, Endpoint: newTestEndpoint("e1")},
	}}
	v := &countingVisitor{}
	require.NoError(t, tree.Accept(v))
	assert.Equal(t, 3, v.n)
}
