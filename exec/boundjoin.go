// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/scheduler"
)

// remoteRequestableInfo extracts the patterns and candidate endpoints from
// a node the rewriter has already established is a single remote request
// (or small fan-out of them): ExclusiveStatement, ExclusiveGroup, or
// StatementSourcePattern. Any other node reaching here is a rewriter bug.
func remoteRequestableInfo(n algebra.Node) ([]model.TriplePattern, []*endpoint.Endpoint, error) {
	switch t := n.(type) {
	case *algebra.ExclusiveStatement:
		return []model.TriplePattern{t.Pattern}, []*endpoint.Endpoint{t.Endpoint}, nil
	case *algebra.ExclusiveGroup:
		return t.Patterns, []*endpoint.Endpoint{t.Endpoint}, nil
	case *algebra.StatementSourcePattern:
		return []model.TriplePattern{t.Pattern}, t.Endpoints, nil
	default:
		return nil, nil, fmt.Errorf("exec: %T is not a valid bound-join right side", n)
	}
}

func (e *Evaluator) evalBoundJoin(ctx context.Context, n *algebra.BoundJoin) (endpoint.Stream[model.BindingSet], error) {
	left, err := e.Evaluate(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	patterns, endpoints, err := remoteRequestableInfo(n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	joinVars := n.Left.Vars().Intersect(n.Right.Vars())
	batchSize := n.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	out := make(chan model.BindingSet, remoteBufferSize)
	done := make(chan struct{})
	var outErr error

	go func() {
		defer close(out)
		defer close(done)
		defer left.Close()

		for {
			batch, more, err := readBatch(ctx, left, batchSize)
			if err != nil {
				outErr = err
				return
			}
			if len(batch) == 0 {
				if !more {
					return
				}
				continue
			}
			if err := e.dispatchBatch(ctx, batch, patterns, endpoints, joinVars, out); err != nil {
				outErr = err
				return
			}
			if !more {
				return
			}
		}
	}()

	return newChanBindingStream(out, done, &outErr), nil
}

func readBatch(ctx context.Context, s endpoint.Stream[model.BindingSet], size int) ([]model.BindingSet, bool, error) {
	batch := make([]model.BindingSet, 0, size)
	for len(batch) < size {
		row, ok, err := s.Next(ctx)
		if err != nil {
			return batch, false, err
		}
		if !ok {
			return batch, false, nil
		}
		batch = append(batch, row)
	}
	return batch, true, nil
}

// dispatchBatch issues one remote request per candidate endpoint for the
// given batch of left rows, on e.joinScheduler, and streams the merged
// results (bag union across endpoints) into out.
func (e *Evaluator) dispatchBatch(ctx context.Context, batch []model.BindingSet, patterns []model.TriplePattern, endpoints []*endpoint.Endpoint, joinVars model.VarSet, out chan<- model.BindingSet) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(endpoints))
	for _, ep := range endpoints {
		ep := ep
		wg.Add(1)
		e.joinScheduler.Schedule(ctx, scheduler.TaskFunc(func(taskCtx context.Context) error {
			defer wg.Done()
			err := e.runBatchAgainstEndpoint(taskCtx, ep, batch, patterns, joinVars, out)
			if err != nil {
				errs <- err
				e.queryInfo.Abort(err)
			}
			return err
		}))
	}
	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (e *Evaluator) runBatchAgainstEndpoint(ctx context.Context, ep *endpoint.Endpoint, batch []model.BindingSet, patterns []model.TriplePattern, joinVars model.VarSet, out chan<- model.BindingSet) error {
	src, err := ep.TripleSource()
	if err != nil {
		return err
	}
	e.queryInfo.IncRemoteRequests()

	if src.UsePreparedQuery() && len(joinVars) > 0 {
		query := boundJoinQuery(patterns, joinVars, batch)
		stream, err := src.Evaluate(ctx, query)
		if err != nil {
			return fmt.Errorf("bound join against endpoint %s: %w", ep.ID(), err)
		}
		defer stream.Close()
		for {
			row, ok, err := stream.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			idxTerm, present := row.Lookup(rowIndexVar)
			if !present {
				continue
			}
			idx, convErr := strconv.Atoi(idxTerm.Value())
			if convErr != nil || idx < 0 || idx >= len(batch) {
				continue
			}
			merged, ok := batch[idx].Merge(row.Drop(rowIndexVar))
			if !ok {
				continue
			}
			select {
			case out <- merged:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Fallback for endpoints that don't accept VALUES-bound batch queries:
	// issue one bound query per row in the batch.
	for _, row := range batch {
		query := selectQuery(patterns, row)
		stream, err := src.Evaluate(ctx, query)
		if err != nil {
			return fmt.Errorf("bound join against endpoint %s: %w", ep.ID(), err)
		}
		for {
			result, ok, err := stream.Next(ctx)
			if err != nil {
				stream.Close()
				return err
			}
			if !ok {
				break
			}
			merged, ok := row.Merge(result)
			if !ok {
				continue
			}
			select {
			case out <- merged:
			case <-ctx.Done():
				stream.Close()
				return ctx.Err()
			}
		}
		stream.Close()
	}
	return nil
}
