// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"sync"

	"github.com/thbinhqn/fedx/model"
)

// LocalTripleSource is a TripleSource backed by an in-process set of
// statements. It is used for NativeStore endpoints: federation members that
// are co-located with the engine and so never incur a network round trip.
// A probe against a LocalTripleSource that finds matching statements is
// recorded by the cache as HasLocalStatements; one that finds none is
// recorded as None.
type LocalTripleSource struct {
	mu         sync.RWMutex
	statements []model.Statement
}

// NewLocalTripleSource returns a LocalTripleSource seeded with statements.
func NewLocalTripleSource(statements ...model.Statement) *LocalTripleSource {
	return &LocalTripleSource{statements: append([]model.Statement(nil), statements...)}
}

// Add inserts additional statements, for use by a local SPARQL Update or by
// test setup.
func (l *LocalTripleSource) Add(statements ...model.Statement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statements = append(l.statements, statements...)
}

func (l *LocalTripleSource) UsePreparedQuery() bool { return false }

func (l *LocalTripleSource) Close() error { return nil }

func matches(t model.Term, candidate model.Term) bool {
	return t.IsVariable() || t.Equal(candidate)
}

func (l *LocalTripleSource) GetStatements(ctx context.Context, tp model.TriplePattern) (Stream[model.Statement], error) {
	l.mu.RLock()
	var out []model.Statement
	for _, stmt := range l.statements {
		if matches(tp.Subject, stmt.Subject) && matches(tp.Predicate, stmt.Predicate) && matches(tp.Object, stmt.Object) {
			out = append(out, stmt)
		}
	}
	l.mu.RUnlock()
	return newSliceStream(out), nil
}

func (l *LocalTripleSource) Ask(ctx context.Context, tp model.TriplePattern, bindings model.BindingSet) (bool, error) {
	bound := bindings.Apply(tp)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, stmt := range l.statements {
		if matches(bound.Subject, stmt.Subject) && matches(bound.Predicate, stmt.Predicate) && matches(bound.Object, stmt.Object) {
			return true, nil
		}
	}
	return false, nil
}

// Evaluate supports only the trivial single-triple-pattern SELECT queries
// the exec package issues against co-located sources for exclusive groups;
// it does not implement general SPARQL algebra. A NativeStore endpoint with
// richer query needs should instead be wrapped by SparqlTripleSource
// pointed at its own SPARQL endpoint.
func (l *LocalTripleSource) Evaluate(ctx context.Context, sparql string) (Stream[model.BindingSet], error) {
	return newSliceStream[model.BindingSet](nil), nil
}

// sliceStream is the simplest possible Stream: it serves pre-computed
// values with no producer goroutine.
type sliceStream[T any] struct {
	values []T
	pos    int
}

func newSliceStream[T any](values []T) Stream[T] {
	return &sliceStream[T]{values: values}
}

func (s *sliceStream[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if s.pos >= len(s.values) {
		return zero, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceStream[T]) Close() error { return nil }
