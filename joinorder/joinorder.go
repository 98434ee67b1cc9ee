// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package joinorder arranges the children of an NJoin into an evaluation
// order using a greedy O(n^2) heuristic: at each step, pick the remaining
// child that is cheapest to evaluate next given what is already bound,
// preferring fewer free variables, preferring an exclusive source over a
// multi-endpoint one at equal variable count, and breaking remaining ties
// by the greatest variable overlap with the prefix already chosen. This
// does not search the full plan space the way a cost-based optimizer
// would; it is the same trade FedX itself makes, favoring a cheap, good
// ordering over an expensive, optimal one.
package joinorder

import (
	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/model"
)

// Order rewrites every NJoin in the tree rooted at n, replacing its
// Children with a greedily-ordered permutation. Other node kinds are
// recursed into unchanged. n is not mutated; Order returns a new tree.
func Order(n algebra.Node) algebra.Node {
	switch t := n.(type) {
	case *algebra.NJoin:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = Order(c)
		}
		return &algebra.NJoin{Children: greedyOrder(children)}
	case *algebra.NUnion:
		children := make([]algebra.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = Order(c)
		}
		return &algebra.NUnion{Children: children}
	case *algebra.Filter:
		return &algebra.Filter{Child: Order(t.Child), Expr: t.Expr, Text: t.Text}
	case *algebra.Projection:
		return &algebra.Projection{Child: Order(t.Child), Select: t.Select}
	case *algebra.BoundJoin:
		return &algebra.BoundJoin{Left: Order(t.Left), Right: Order(t.Right), BatchSize: t.BatchSize}
	default:
		return n
	}
}

// rank gives the base priority of a node kind, independent of how many
// variables it has free: an ExclusiveGroup or ExclusiveStatement is
// cheaper than an ambiguous multi-endpoint StatementSourcePattern at the
// same variable count, since the latter requires fanning out to every
// candidate endpoint.
func rank(n algebra.Node) int {
	switch n.(type) {
	case *algebra.EmptyStatementPattern:
		return 0
	case *algebra.ExclusiveStatement, *algebra.ExclusiveGroup:
		return 1
	default:
		return 2
	}
}

// greedyOrder implements the step described in the package doc comment. It
// preserves the original relative order of the input as the tie-breaker of
// last resort, so the result is deterministic for equal-cost candidates.
func greedyOrder(children []algebra.Node) []algebra.Node {
	remaining := append([]algebra.Node(nil), children...)
	originalIndex := make(map[algebra.Node]int, len(children))
	for i, c := range children {
		originalIndex[c] = i
	}

	var ordered []algebra.Node
	var bound model.VarSet

	for len(remaining) > 0 {
		bestIdx := 0
		for i := 1; i < len(remaining); i++ {
			if better(remaining[i], remaining[bestIdx], bound, originalIndex) {
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		bound = bound.Union(chosen.Vars())
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ordered
}

// better reports whether candidate should be picked ahead of current,
// given the variables already bound by the chosen prefix.
func better(candidate, current algebra.Node, bound model.VarSet, originalIndex map[algebra.Node]int) bool {
	cVars, curVars := len(candidate.Vars()), len(current.Vars())
	if cVars != curVars {
		return cVars < curVars
	}
	cRank, curRank := rank(candidate), rank(current)
	if cRank != curRank {
		return cRank < curRank
	}
	cOverlap := bound.OverlapCount(candidate.Vars())
	curOverlap := bound.OverlapCount(current.Vars())
	if cOverlap != curOverlap {
		return cOverlap > curOverlap
	}
	return originalIndex[candidate] < originalIndex[current]
}
