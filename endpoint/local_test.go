// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thbinhqn/fedx/model"
)

func mustPattern(t *testing.T, s, p, o model.Term) model.TriplePattern {
	tp, err := model.NewTriplePattern(s, p, o)
	require.NoError(t, err)
	return tp
}

func TestLocalTripleSourceGetStatements(t *testing.T) {
	src := NewLocalTripleSource(
		model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")},
		model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("c")},
		model.Statement{Subject: model.NewIRI("b"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("c")},
	)
	tp := mustPattern(t, model.NewIRI("a"), model.NewIRI("knows"), model.NewVariable("o"))
	stream, err := src.GetStatements(context.Background(), tp)
	require.NoError(t, err)
	got, err := Collect(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLocalTripleSourceAsk(t *testing.T) {
	src := NewLocalTripleSource(
		model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("knows"), Object: model.NewIRI("b")},
	)
	tp := mustPattern(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewIRI("b"))
	ok, err := src.Ask(context.Background(), tp, model.BindingSet{})
	require.NoError(t, err)
	assert.True(t, ok)

	tp2 := mustPattern(t, model.NewVariable("s"), model.NewIRI("knows"), model.NewIRI("z"))
	ok, err = src.Ask(context.Background(), tp2, model.BindingSet{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumingBufferDrainsAndCloses(t *testing.T) {
	src := NewLocalTripleSource(
		model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("p"), Object: model.NewIRI("1")},
		model.Statement{Subject: model.NewIRI("a"), Predicate: model.NewIRI("p"), Object: model.NewIRI("2")},
	)
	tp := mustPattern(t, model.NewIRI("a"), model.NewIRI("p"), model.NewVariable("o"))
	inner, err := src.GetStatements(context.Background(), tp)
	require.NoError(t, err)

	buffered := ConsumingBuffer(context.Background(), inner, 8)
	got, err := Collect(context.Background(), buffered)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	mk := func() (TripleSource, error) { return NewLocalTripleSource(), nil }
	ep1 := New(Config{ID: ID("e1"), Type: NativeStore}, mk)
	ep2 := New(Config{ID: ID("e1"), Type: NativeStore}, mk)
	require.NoError(t, r.Add(ep1))
	assert.Error(t, r.Add(ep2))
	assert.Equal(t, 1, r.Len())
}

func TestEndpointLifecycle(t *testing.T) {
	built := 0
	ep := New(Config{ID: ID("e1"), Type: NativeStore}, func() (TripleSource, error) {
		built++
		return NewLocalTripleSource(), nil
	})
	require.NoError(t, ep.Initialize())
	require.NoError(t, ep.Initialize())
	assert.Equal(t, 1, built, "Initialize must only build the source once")

	require.NoError(t, ep.Repair())
	assert.Equal(t, 2, built)

	require.NoError(t, ep.Shutdown())
	_, err := ep.TripleSource()
	require.NoError(t, err)
	assert.Equal(t, 3, built, "TripleSource after Shutdown must rebuild")
}
