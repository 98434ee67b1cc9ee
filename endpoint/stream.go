// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"sync"
)

// A Stream is a closable, pull-based sequence of values. Next blocks until a
// value is available, the stream is exhausted, an error occurs, or ctx is
// canceled. Close must be idempotent and must release any underlying
// connection; every stream returned by a TripleSource is a Stream.
type Stream[T any] interface {
	// Next returns the next value. ok is false once the stream is exhausted
	// (err is nil in that case). Once Next returns an error, all subsequent
	// calls return the same error.
	Next(ctx context.Context) (value T, ok bool, err error)
	// Close releases resources held by the stream. It is safe to call Close
	// more than once and to call it before the stream is exhausted.
	Close() error
}

// chanStream adapts a producer goroutine that sends on a channel into a
// Stream. It is the building block for both local (in-process) and remote
// (network) triple sources.
type chanStream[T any] struct {
	values <-chan T
	done   <-chan struct{} // closed by the producer when it's done, possibly with an error
	errPtr *error          // set by the producer before closing done
	closeFn func()
	closeOnce sync.Once
}

// newChanStream constructs a Stream backed by values/done/errPtr, as filled
// in by a producer goroutine. closeFn is invoked exactly once, from Close,
// to signal the producer to stop and release its connection.
func newChanStream[T any](values <-chan T, done <-chan struct{}, errPtr *error, closeFn func()) Stream[T] {
	return &chanStream[T]{values: values, done: done, errPtr: errPtr, closeFn: closeFn}
}

func (s *chanStream[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case v, open := <-s.values:
		if !open {
			select {
			case <-s.done:
				if s.errPtr != nil && *s.errPtr != nil {
					return zero, false, *s.errPtr
				}
			default:
			}
			return zero, false, nil
		}
		return v, true, nil
	case <-s.done:
		// Drain any values sent before the producer closed its error slot.
		select {
		case v, open := <-s.values:
			if open {
				return v, true, nil
			}
		default:
		}
		if s.errPtr != nil && *s.errPtr != nil {
			return zero, false, *s.errPtr
		}
		return zero, false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *chanStream[T]) Close() error {
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
	return nil
}

// ConsumingBuffer wraps a Stream produced by a remote endpoint so that the
// underlying connection is drained eagerly into a bounded in-memory queue,
// even if the consumer reads slowly. This is the design decision called out
// in the spec: without it, a slow consumer would hold a remote connection
// open indefinitely and starve the endpoint's connection pool.
//
// The wrapped stream's Close both stops the drain goroutine and closes the
// inner stream, returning its connection to the pool.
func ConsumingBuffer[T any](ctx context.Context, inner Stream[T], capacity int) Stream[T] {
	if capacity < 1 {
		capacity = 1
	}
	values := make(chan T, capacity)
	done := make(chan struct{})
	var outErr error
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(done)
		defer close(values)
		for {
			select {
			case <-stop:
				outErr = context.Canceled
				return
			default:
			}
			v, ok, err := inner.Next(ctx)
			if err != nil {
				outErr = err
				return
			}
			if !ok {
				return
			}
			select {
			case values <- v:
			case <-stop:
				outErr = context.Canceled
				return
			}
		}
	}()

	closeFn := func() {
		stopOnce.Do(func() { close(stop) })
		inner.Close()
	}
	return newChanStream[T](values, done, &outErr, closeFn)
}

// Collect drains a Stream into a slice. It is meant for small results (tests,
// ASK fallbacks); the parallel evaluator otherwise consumes streams lazily.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	defer s.Close()
	var out []T
	for {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
