// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package algebra defines the query plan tree the rewriter and the
// evaluator operate on. Where the system this package is modeled on used a
// Java class hierarchy (one concrete class per node kind, dispatched via
// overriding), this package uses one Go type per node kind joined by a
// single Node interface, and a Visitor for traversal. Tagged variants over
// inheritance: a plan tree walker is a switch over a sealed set of node
// kinds, not a virtual call.
package algebra

import (
	"fmt"
	"strings"

	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

// Node is any node in a query plan tree. All concrete node types in this
// package implement it; the set is closed (see Visitor) so a new node kind
// requires updating every Visitor implementation, which the compiler
// enforces.
type Node interface {
	// Vars returns the free variables this node can bind.
	Vars() model.VarSet
	// Accept dispatches to the appropriate Visitor method.
	Accept(v Visitor) error
	fmt.Stringer
}

// Visitor dispatches on node kind through Accept. The rewriter, the
// join-order optimizer and the evaluator in this module do not implement
// it; they switch on the concrete node type instead.
type Visitor interface {
	VisitEmptyStatementPattern(n *EmptyStatementPattern) error
	VisitExclusiveStatement(n *ExclusiveStatement) error
	VisitStatementSourcePattern(n *StatementSourcePattern) error
	VisitExclusiveGroup(n *ExclusiveGroup) error
	VisitNJoin(n *NJoin) error
	VisitNUnion(n *NUnion) error
	VisitFilter(n *Filter) error
	VisitProjection(n *Projection) error
	VisitBoundJoin(n *BoundJoin) error
}

// EmptyStatementPattern is a triple pattern for which source selection
// found no candidate endpoint. It is a plan-tree leaf that always produces
// zero solutions; keeping it as an explicit node (rather than dropping the
// pattern) preserves the pattern's variables for the rest of the plan so
// projection still reports them as unbound.
type EmptyStatementPattern struct {
	Pattern model.TriplePattern
}

func (n *EmptyStatementPattern) Vars() model.VarSet        { return model.VarSetOfPattern(n.Pattern) }
func (n *EmptyStatementPattern) Accept(v Visitor) error     { return v.VisitEmptyStatementPattern(n) }
func (n *EmptyStatementPattern) String() string             { return fmt.Sprintf("Empty(%s)", n.Pattern) }

// ExclusiveStatement is a triple pattern known to be answerable by exactly
// one endpoint. It can be evaluated as a single remote request without any
// source-selection ambiguity.
type ExclusiveStatement struct {
	Pattern  model.TriplePattern
	Endpoint *endpoint.Endpoint
}

func (n *ExclusiveStatement) Vars() model.VarSet    { return model.VarSetOfPattern(n.Pattern) }
func (n *ExclusiveStatement) Accept(v Visitor) error { return v.VisitExclusiveStatement(n) }
func (n *ExclusiveStatement) String() string {
	return fmt.Sprintf("ExclusiveStatement(%s @ %s)", n.Pattern, n.Endpoint.ID())
}

// StatementSourcePattern is a triple pattern paired with the set of
// endpoints that might contribute statements for it, as determined by
// source selection. At evaluation time it becomes a union over per-endpoint
// requests.
type StatementSourcePattern struct {
	Pattern   model.TriplePattern
	Endpoints []*endpoint.Endpoint
}

func (n *StatementSourcePattern) Vars() model.VarSet    { return model.VarSetOfPattern(n.Pattern) }
func (n *StatementSourcePattern) Accept(v Visitor) error { return v.VisitStatementSourcePattern(n) }
func (n *StatementSourcePattern) String() string {
	ids := make([]string, len(n.Endpoints))
	for i, e := range n.Endpoints {
		ids[i] = string(e.ID())
	}
	return fmt.Sprintf("StatementSource(%s @ [%s])", n.Pattern, strings.Join(ids, ","))
}

// ExclusiveGroup is a set of triple patterns, all exclusive to the same
// endpoint, that the endpoint can answer in one remote SPARQL query. This
// is the single biggest win source selection offers: patterns that would
// otherwise be N separate remote round trips plus a local join collapse
// into one round trip.
type ExclusiveGroup struct {
	Patterns []model.TriplePattern
	Endpoint *endpoint.Endpoint
}

func (n *ExclusiveGroup) Vars() model.VarSet {
	var vars model.VarSet
	for _, p := range n.Patterns {
		vars = vars.Union(model.VarSetOfPattern(p))
	}
	return vars
}
func (n *ExclusiveGroup) Accept(v Visitor) error { return v.VisitExclusiveGroup(n) }
func (n *ExclusiveGroup) String() string {
	parts := make([]string, len(n.Patterns))
	for i, p := range n.Patterns {
		parts[i] = p.String()
	}
	return fmt.Sprintf("ExclusiveGroup({%s} @ %s)", strings.Join(parts, " . "), n.Endpoint.ID())
}

// NJoin is an n-ary inner join over its children, evaluated left-deep in
// Children's order. The join order optimizer is responsible for arranging
// Children into an efficient order before this node reaches the evaluator;
// NJoin itself does not reorder.
type NJoin struct {
	Children []Node
}

func (n *NJoin) Vars() model.VarSet {
	var vars model.VarSet
	for _, c := range n.Children {
		vars = vars.Union(c.Vars())
	}
	return vars
}
func (n *NJoin) Accept(v Visitor) error { return v.VisitNJoin(n) }
func (n *NJoin) String() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("Join(%s)", strings.Join(parts, " ⋈ "))
}

// NUnion is an n-ary bag union over its children: every solution from every
// child is emitted, with no deduplication and no guaranteed interleaving
// order.
type NUnion struct {
	Children []Node
}

func (n *NUnion) Vars() model.VarSet {
	var vars model.VarSet
	for _, c := range n.Children {
		vars = vars.Union(c.Vars())
	}
	return vars
}
func (n *NUnion) Accept(v Visitor) error { return v.VisitNUnion(n) }
func (n *NUnion) String() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return fmt.Sprintf("Union(%s)", strings.Join(parts, " ∪ "))
}

// FilterExpr is a boolean expression over bound variables, evaluated
// post-join by Filter. It is intentionally a closure rather than its own
// expression-tree sub-language: the SPARQL FILTER grammar is out of scope
// here (see the query layer that builds the plan tree), and every filter
// this engine runs has already been compiled down to a predicate by the
// time it reaches algebra.
type FilterExpr func(model.BindingSet) (bool, error)

// Filter passes through only the solutions from Child for which Expr
// returns true.
type Filter struct {
	Child Node
	Expr  FilterExpr
	// Text is the original filter expression text, kept for String() and
	// diagnostics; it has no evaluation role.
	Text string
}

func (n *Filter) Vars() model.VarSet    { return n.Child.Vars() }
func (n *Filter) Accept(v Visitor) error { return v.VisitFilter(n) }
func (n *Filter) String() string         { return fmt.Sprintf("Filter(%s, %s)", n.Text, n.Child) }

// Projection restricts solutions from Child to the variables in Select.
// Select is a VarSet, so it holds the variables in sorted order, not in the
// order of a SPARQL SELECT clause.
type Projection struct {
	Child Node
	Select model.VarSet
}

func (n *Projection) Vars() model.VarSet    { return n.Select }
func (n *Projection) Accept(v Visitor) error { return v.VisitProjection(n) }
func (n *Projection) String() string         { return fmt.Sprintf("Project(%s, %s)", n.Select, n.Child) }

// BoundJoin is the rewriter's replacement for an NJoin whose right side is a
// StatementSourcePattern or ExclusiveGroup: instead of evaluating Right once
// per Left solution, the evaluator batches up to BatchSize solutions from
// Left into a single VALUES-bound remote query against Right's endpoint(s).
// This is the core latency optimization for federated joins: it trades
// per-solution round trips for a constant number of round trips per batch.
type BoundJoin struct {
	Left      Node
	Right     Node
	BatchSize int
}

func (n *BoundJoin) Vars() model.VarSet    { return n.Left.Vars().Union(n.Right.Vars()) }
func (n *BoundJoin) Accept(v Visitor) error { return v.VisitBoundJoin(n) }
func (n *BoundJoin) String() string {
	return fmt.Sprintf("BoundJoin(%s ⋈[%d] %s)", n.Left, n.BatchSize, n.Right)
}
