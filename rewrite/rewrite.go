// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package rewrite transforms the plan tree source selection produces into
// one the evaluator runs efficiently: merging a join into one ExclusiveGroup
// when every child of the join is exclusive to the same endpoint (a join
// with any other child is not grouped, not even in part), and marking joins
// whose right side can be sent as one request per batch as BoundJoin so the
// evaluator batches them.
// Rewrite is idempotent: running it twice on its own output is a no-op,
// which lets the planner call it defensively after later stages without
// worrying about double-applying a transform.
package rewrite

import (
	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

// DefaultBoundJoinBatchSize is used when the caller doesn't override it.
// FedX federations commonly run with values in the 15-25 range; this sits
// in the middle of that range.
const DefaultBoundJoinBatchSize = 20

// Options configures Rewrite.
type Options struct {
	// BoundJoinBatchSize is the batch size recorded on generated BoundJoin
	// nodes. Zero means DefaultBoundJoinBatchSize.
	BoundJoinBatchSize int
}

// Rewrite applies exclusive-group extraction and bound-join marking to n
// and returns the resulting tree. n is not mutated in place; Rewrite
// returns a new tree sharing unchanged subtrees with n.
func Rewrite(n algebra.Node, opts Options) algebra.Node {
	batchSize := opts.BoundJoinBatchSize
	if batchSize <= 0 {
		batchSize = DefaultBoundJoinBatchSize
	}
	n = rewriteTree(n)
	n = markBoundJoins(n, batchSize)
	return n
}

func rewriteTree(n algebra.Node) algebra.Node {
	switch t := n.(type) {
	case *algebra.NJoin:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = rewriteTree(c)
		}
		if group, ok := tryGroupExclusives(children); ok {
			return group
		}
		return &algebra.NJoin{Children: children}
	case *algebra.NUnion:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = rewriteTree(c)
		}
		return &algebra.NUnion{Children: children}
	case *algebra.Filter:
		return &algebra.Filter{Child: rewriteTree(t.Child), Expr: t.Expr, Text: t.Text}
	case *algebra.Projection:
		return &algebra.Projection{Child: rewriteTree(t.Child), Select: t.Select}
	case *algebra.BoundJoin:
		return &algebra.BoundJoin{Left: rewriteTree(t.Left), Right: rewriteTree(t.Right), BatchSize: t.BatchSize}
	default:
		// Leaves: EmptyStatementPattern, ExclusiveStatement,
		// StatementSourcePattern, ExclusiveGroup.
		return n
	}
}

// tryGroupExclusives checks whether every child of an NJoin is an
// ExclusiveStatement or ExclusiveGroup against the very same endpoint. If
// so, it merges them into a single ExclusiveGroup, which the evaluator can
// answer with one remote query instead of one request per pattern plus a
// local join. A join that mixes exclusive children from different
// endpoints, or mixes exclusive with non-exclusive children, is left alone:
// a partial merge would change the evaluation order in ways that belong to
// the join-order optimizer, which runs after rewrite.
func tryGroupExclusives(children []algebra.Node) (*algebra.ExclusiveGroup, bool) {
	if len(children) < 2 {
		return nil, false
	}
	var ep *endpoint.Endpoint
	var patterns []model.TriplePattern
	for _, c := range children {
		switch leaf := c.(type) {
		case *algebra.ExclusiveStatement:
			if ep == nil {
				ep = leaf.Endpoint
			} else if ep.ID() != leaf.Endpoint.ID() {
				return nil, false
			}
			patterns = append(patterns, leaf.Pattern)
		case *algebra.ExclusiveGroup:
			if ep == nil {
				ep = leaf.Endpoint
			} else if ep.ID() != leaf.Endpoint.ID() {
				return nil, false
			}
			patterns = append(patterns, leaf.Patterns...)
		default:
			return nil, false
		}
	}
	return &algebra.ExclusiveGroup{Patterns: patterns, Endpoint: ep}, true
}

// markBoundJoins rewrites the children of every NJoin in the tree, left to
// right, into a left-deep chain: each child that isRemoteRequestable
// (StatementSourcePattern, ExclusiveGroup, or ExclusiveStatement against a
// non-local endpoint) becomes the Right of a BoundJoin over the chain so
// far, and any other child is joined to the chain by a two-child NJoin.
// A child that is itself a compound node (another join, a union, a filter)
// is recursed into but is not itself turned into the right side of a
// BoundJoin, since the evaluator's batching logic binds a single remote
// request per batch and a compound subtree does not reduce to one.
func markBoundJoins(n algebra.Node, batchSize int) algebra.Node {
	switch t := n.(type) {
	case *algebra.NJoin:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = markBoundJoins(c, batchSize)
		}
		return chainBoundJoins(children, batchSize)
	case *algebra.NUnion:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = markBoundJoins(c, batchSize)
		}
		return &algebra.NUnion{Children: children}
	case *algebra.Filter:
		return &algebra.Filter{Child: markBoundJoins(t.Child, batchSize), Expr: t.Expr, Text: t.Text}
	case *algebra.Projection:
		return &algebra.Projection{Child: markBoundJoins(t.Child, batchSize), Select: t.Select}
	case *algebra.BoundJoin:
		return &algebra.BoundJoin{Left: markBoundJoins(t.Left, batchSize), Right: markBoundJoins(t.Right, batchSize), BatchSize: t.BatchSize}
	default:
		return n
	}
}

func chainBoundJoins(children []algebra.Node, batchSize int) algebra.Node {
	if len(children) == 0 {
		return &algebra.NJoin{}
	}
	left := children[0]
	for _, right := range children[1:] {
		if isRemoteRequestable(right) {
			left = &algebra.BoundJoin{Left: left, Right: right, BatchSize: batchSize}
		} else {
			left = &algebra.NJoin{Children: []algebra.Node{left, right}}
		}
	}
	return left
}

// isRemoteRequestable reports whether n can serve as the right side of a
// BoundJoin: a single remote request (or small fan-out of remote requests)
// that the evaluator can issue once per batch of bound rows from the left.
func isRemoteRequestable(n algebra.Node) bool {
	switch t := n.(type) {
	case *algebra.StatementSourcePattern:
		return true
	case *algebra.ExclusiveGroup:
		return true
	case *algebra.ExclusiveStatement:
		return !t.Endpoint.IsLocal()
	default:
		return false
	}
}
