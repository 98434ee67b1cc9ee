// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package exec evaluates a rewritten, ordered plan tree into a stream of
// solutions. Each algebra.Node kind maps to one evaluation strategy:
// exclusive leaves become a single remote request, ambiguous leaves fan out
// across their candidate endpoints, joins run left-deep as either a hash
// join over two already-flowing streams or, where the rewriter marked one,
// a batched bound join against a remote-only right side.
package exec

import (
	"context"
	"fmt"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/queryctx"
	"github.com/thbinhqn/fedx/scheduler"
)

// Evaluator turns a plan tree into a solution stream. One Evaluator serves
// one query; joinScheduler and unionScheduler are shared, long-lived pools
// owned by the federation manager.
type Evaluator struct {
	joinScheduler  *scheduler.Scheduler
	unionScheduler *scheduler.Scheduler
	queryInfo      *queryctx.QueryInfo
}

// New returns an Evaluator that dispatches join-side work to joinSched and
// union fan-out to unionSched.
func New(joinSched, unionSched *scheduler.Scheduler, qi *queryctx.QueryInfo) *Evaluator {
	return &Evaluator{joinScheduler: joinSched, unionScheduler: unionSched, queryInfo: qi}
}

// Evaluate returns a stream of solutions for the plan rooted at n.
func (e *Evaluator) Evaluate(ctx context.Context, n algebra.Node) (endpoint.Stream[model.BindingSet], error) {
	if aborted, err := e.queryInfo.Aborted(); aborted {
		return nil, fmt.Errorf("exec: query already aborted: %w", err)
	}
	switch t := n.(type) {
	case *algebra.EmptyStatementPattern:
		return emptyStream(), nil
	case *algebra.ExclusiveStatement:
		return e.evalRemoteLeaf(ctx, []model.TriplePattern{t.Pattern}, t.Endpoint)
	case *algebra.ExclusiveGroup:
		return e.evalRemoteLeaf(ctx, t.Patterns, t.Endpoint)
	case *algebra.StatementSourcePattern:
		return e.evalStatementSourcePattern(ctx, t)
	case *algebra.NJoin:
		return e.evalNJoin(ctx, t)
	case *algebra.NUnion:
		return e.evalNUnion(ctx, t)
	case *algebra.Filter:
		return e.evalFilter(ctx, t)
	case *algebra.Projection:
		return e.evalProjection(ctx, t)
	case *algebra.BoundJoin:
		return e.evalBoundJoin(ctx, t)
	default:
		return nil, fmt.Errorf("exec: unsupported plan node %T", n)
	}
}

func (e *Evaluator) evalRemoteLeaf(ctx context.Context, patterns []model.TriplePattern, ep *endpoint.Endpoint) (endpoint.Stream[model.BindingSet], error) {
	src, err := ep.TripleSource()
	if err != nil {
		return nil, err
	}
	e.queryInfo.IncRemoteRequests()
	stream, err := src.Evaluate(ctx, selectQuery(patterns, model.BindingSet{}))
	if err != nil {
		return nil, fmt.Errorf("exec: evaluating against endpoint %s: %w", ep.ID(), err)
	}
	if ep.IsLocal() {
		return stream, nil
	}
	return endpoint.ConsumingBuffer(ctx, stream, remoteBufferSize), nil
}

// remoteBufferSize is the depth of the consuming buffer placed over every
// remote stream, so a slow downstream join never holds a remote connection
// open past the time it takes to fully receive the response.
const remoteBufferSize = 128

func (e *Evaluator) evalStatementSourcePattern(ctx context.Context, n *algebra.StatementSourcePattern) (endpoint.Stream[model.BindingSet], error) {
	thunks := make([]func() (endpoint.Stream[model.BindingSet], error), len(n.Endpoints))
	for i, ep := range n.Endpoints {
		ep := ep
		thunks[i] = func() (endpoint.Stream[model.BindingSet], error) {
			return e.evalRemoteLeaf(ctx, []model.TriplePattern{n.Pattern}, ep)
		}
	}
	return e.mergeConcurrently(ctx, thunks)
}

func (e *Evaluator) evalFilter(ctx context.Context, n *algebra.Filter) (endpoint.Stream[model.BindingSet], error) {
	child, err := e.Evaluate(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	return filterStream(child, n.Expr), nil
}

func (e *Evaluator) evalProjection(ctx context.Context, n *algebra.Projection) (endpoint.Stream[model.BindingSet], error) {
	child, err := e.Evaluate(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	return projectStream(child, n.Select), nil
}
