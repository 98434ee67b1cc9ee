// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"context"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

// emptyStream returns a Stream that yields nothing, for
// EmptyStatementPattern leaves.
func emptyStream() endpoint.Stream[model.BindingSet] {
	return &sliceBindingStream{}
}

type sliceBindingStream struct {
	values []model.BindingSet
	pos    int
}

func newSliceBindingStream(values []model.BindingSet) endpoint.Stream[model.BindingSet] {
	return &sliceBindingStream{values: values}
}

func (s *sliceBindingStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.BindingSet{}, false, err
	}
	if s.pos >= len(s.values) {
		return model.BindingSet{}, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceBindingStream) Close() error { return nil }

// filterStream wraps inner, passing through only rows for which expr
// returns true.
func filterStream(inner endpoint.Stream[model.BindingSet], expr algebra.FilterExpr) endpoint.Stream[model.BindingSet] {
	return &filteredStream{inner: inner, expr: expr}
}

type filteredStream struct {
	inner endpoint.Stream[model.BindingSet]
	expr  algebra.FilterExpr
}

func (f *filteredStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	for {
		row, ok, err := f.inner.Next(ctx)
		if err != nil || !ok {
			return row, ok, err
		}
		keep, err := f.expr(row)
		if err != nil {
			return model.BindingSet{}, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

func (f *filteredStream) Close() error { return f.inner.Close() }

// projectStream wraps inner, restricting each row to the given variables.
func projectStream(inner endpoint.Stream[model.BindingSet], vars model.VarSet) endpoint.Stream[model.BindingSet] {
	return &projectedStream{inner: inner, vars: vars}
}

type projectedStream struct {
	inner endpoint.Stream[model.BindingSet]
	vars  model.VarSet
}

func (p *projectedStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	row, ok, err := p.inner.Next(ctx)
	if err != nil || !ok {
		return row, ok, err
	}
	var bindings []model.Binding
	for _, v := range p.vars {
		if val, present := row.Lookup(v); present {
			bindings = append(bindings, model.Binding{Var: v, Value: val})
		}
	}
	return model.NewBindingSet(bindings...), true, nil
}

func (p *projectedStream) Close() error { return p.inner.Close() }

// chanBindingStream adapts a producer goroutine writing to a channel into
// an endpoint.Stream, used by the hash join and bound join to publish rows
// as they're computed instead of materializing a whole result set.
type chanBindingStream struct {
	values <-chan model.BindingSet
	done   <-chan struct{}
	errPtr *error
}

func newChanBindingStream(values <-chan model.BindingSet, done <-chan struct{}, errPtr *error) endpoint.Stream[model.BindingSet] {
	return &chanBindingStream{values: values, done: done, errPtr: errPtr}
}

func (c *chanBindingStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	select {
	case v, open := <-c.values:
		if !open {
			if c.errPtr != nil && *c.errPtr != nil {
				return model.BindingSet{}, false, *c.errPtr
			}
			return model.BindingSet{}, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		return model.BindingSet{}, false, ctx.Err()
	}
}

func (c *chanBindingStream) Close() error {
	// The producer goroutine owns values/done and drains to completion or to
	// a context cancellation triggered elsewhere; there is nothing further
	// for the consumer side to release.
	return nil
}
