// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"context"
	"sync"

	"github.com/thbinhqn/fedx/algebra"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/scheduler"
)

// mergeConcurrently starts every thunk on e.unionScheduler and merges their
// output streams into one, in whatever order rows arrive. It implements
// the bag-union semantics NUnion and StatementSourcePattern both need: no
// deduplication, no guaranteed ordering, but every input row is emitted
// exactly once. Running each thunk through the union scheduler, rather than
// a plain goroutine, keeps a query with many wide unions from oversubscribing
// the machine independently of how many join workers are also busy.
func (e *Evaluator) mergeConcurrently(ctx context.Context, thunks []func() (endpoint.Stream[model.BindingSet], error)) (endpoint.Stream[model.BindingSet], error) {
	if len(thunks) == 0 {
		return emptyStream(), nil
	}

	out := make(chan model.BindingSet, remoteBufferSize)
	childCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	var firstErrMu sync.Mutex
	var firstErr error

	recordErr := func(err error) {
		firstErrMu.Lock()
		alreadySet := firstErr != nil
		if !alreadySet {
			firstErr = err
		}
		firstErrMu.Unlock()
		if !alreadySet {
			cancel()
			e.queryInfo.Abort(err)
		}
	}

	for _, thunk := range thunks {
		thunk := thunk
		wg.Add(1)
		e.unionScheduler.Schedule(childCtx, scheduler.TaskFunc(func(taskCtx context.Context) error {
			defer wg.Done()
			stream, err := thunk()
			if err != nil {
				recordErr(err)
				return err
			}
			defer stream.Close()
			for {
				row, ok, err := stream.Next(taskCtx)
				if err != nil {
					recordErr(err)
					return err
				}
				if !ok {
					return nil
				}
				select {
				case out <- row:
				case <-taskCtx.Done():
					return taskCtx.Err()
				}
			}
		}))
	}

	go func() {
		wg.Wait()
		close(out)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		<-childCtx.Done()
		close(done)
	}()

	return &unionStream{out: out, done: done, err: &firstErr, errMu: &firstErrMu, cancel: cancel}, nil
}

type unionStream struct {
	out    <-chan model.BindingSet
	done   <-chan struct{}
	err    *error
	errMu  *sync.Mutex
	cancel context.CancelFunc
}

func (u *unionStream) Next(ctx context.Context) (model.BindingSet, bool, error) {
	select {
	case row, ok := <-u.out:
		if ok {
			return row, true, nil
		}
		u.errMu.Lock()
		err := *u.err
		u.errMu.Unlock()
		return model.BindingSet{}, false, err
	case <-ctx.Done():
		return model.BindingSet{}, false, ctx.Err()
	}
}

func (u *unionStream) Close() error {
	u.cancel()
	return nil
}

func (e *Evaluator) evalNUnion(ctx context.Context, n *algebra.NUnion) (endpoint.Stream[model.BindingSet], error) {
	thunks := make([]func() (endpoint.Stream[model.BindingSet], error), len(n.Children))
	for i, child := range n.Children {
		child := child
		thunks[i] = func() (endpoint.Stream[model.BindingSet], error) {
			return e.Evaluate(ctx, child)
		}
	}
	return e.mergeConcurrently(ctx, thunks)
}
