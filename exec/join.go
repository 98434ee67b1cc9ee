// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"context"
	"strings"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

// evalNJoin evaluates an already-ordered NJoin left-deep: the first two
// children are hash-joined, the result is hash-joined with the third, and
// so on. The join-order optimizer is responsible for the child order;
// evalNJoin never reorders.
func (e *Evaluator) evalNJoin(ctx context.Context, n *algebra.NJoin) (endpoint.Stream[model.BindingSet], error) {
	if len(n.Children) == 0 {
		return emptyStream(), nil
	}
	accVars := n.Children[0].Vars()
	acc, err := e.Evaluate(ctx, n.Children[0])
	if err != nil {
		return nil, err
	}
	for _, child := range n.Children[1:] {
		right, err := e.Evaluate(ctx, child)
		if err != nil {
			acc.Close()
			return nil, err
		}
		joinVars := accVars.Intersect(child.Vars())
		acc = e.hashJoin(ctx, acc, right, joinVars)
		accVars = accVars.Union(child.Vars())
	}
	return acc, nil
}

// joinKey renders the values a row has for joinVars into a string suitable
// as a hash map key. Rows with no shared join variables all hash to the
// same (empty) key, which makes hashJoin degenerate to a cartesian product
// when joinVars is empty -- the correct behavior for a join with no shared
// variables.
func joinKey(row model.BindingSet, joinVars model.VarSet) (string, bool) {
	if len(joinVars) == 0 {
		return "", true
	}
	var b strings.Builder
	for _, v := range joinVars {
		val, ok := row.Lookup(v)
		if !ok {
			return "", false
		}
		b.WriteString(val.String())
		b.WriteByte(0)
	}
	return b.String(), true
}

// hashJoin materializes left into a hash map keyed by joinVars, then
// streams right, matching each right row against the map as it arrives.
// left and right are both already-flowing streams by the time hashJoin is
// called, so their remote requests (if any) were issued before
// materialization begins.
func (e *Evaluator) hashJoin(ctx context.Context, left, right endpoint.Stream[model.BindingSet], joinVars model.VarSet) endpoint.Stream[model.BindingSet] {
	out := make(chan model.BindingSet, remoteBufferSize)
	done := make(chan struct{})
	var outErr error

	go func() {
		defer close(out)
		defer close(done)
		defer right.Close()

		buildIndex := make(map[string][]model.BindingSet)
		for {
			row, ok, err := left.Next(ctx)
			if err != nil {
				outErr = err
				left.Close()
				return
			}
			if !ok {
				break
			}
			key, ok := joinKey(row, joinVars)
			if !ok {
				continue
			}
			buildIndex[key] = append(buildIndex[key], row)
		}
		left.Close()

		for {
			row, ok, err := right.Next(ctx)
			if err != nil {
				outErr = err
				return
			}
			if !ok {
				return
			}
			key, ok := joinKey(row, joinVars)
			if !ok {
				continue
			}
			for _, leftRow := range buildIndex[key] {
				merged, ok := leftRow.Merge(row)
				if !ok {
					continue
				}
				select {
				case out <- merged:
				case <-ctx.Done():
					outErr = ctx.Err()
					return
				}
			}
		}
	}()

	return newChanBindingStream(out, done, &outErr)
}
