// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermEqual(t *testing.T) {
	assert.True(t, NewIRI("http://x").Equal(NewIRI("http://x")))
	assert.False(t, NewIRI("http://x").Equal(NewIRI("http://y")))
	assert.False(t, NewVariable("x").Equal(NewIRI("http://x")))
	assert.True(t, NewTypedLiteral("1", "http://www.w3.org/2001/XMLSchema#int").
		Equal(NewTypedLiteral("1", "http://www.w3.org/2001/XMLSchema#int")))
	assert.False(t, NewLiteral("a", "en").Equal(NewLiteral("a", "fr")))
}

func TestTermString(t *testing.T) {
	assert.Equal(t, "?x", NewVariable("x").String())
	assert.Equal(t, "<http://x>", NewIRI("http://x").String())
	assert.Equal(t, "_:b0", NewBlank("b0").String())
	assert.Equal(t, `"hi"@en`, NewLiteral("hi", "en").String())
}

func TestNewTriplePatternRequiresVariable(t *testing.T) {
	_, err := NewTriplePattern(NewIRI("s"), NewIRI("p"), NewIRI("o"))
	require.Error(t, err)

	tp, err := NewTriplePattern(NewVariable("s"), NewIRI("p"), NewIRI("o"))
	require.NoError(t, err)
	assert.Len(t, tp.Variables(), 1)
}

func TestWildcardKeyIgnoresVariableNames(t *testing.T) {
	tp1, _ := NewTriplePattern(NewVariable("a"), NewIRI("p"), NewVariable("b"))
	tp2, _ := NewTriplePattern(NewVariable("x"), NewIRI("p"), NewVariable("y"))
	assert.Equal(t, WildcardKey(tp1), WildcardKey(tp2))

	tp3, _ := NewTriplePattern(NewVariable("a"), NewIRI("q"), NewVariable("b"))
	assert.NotEqual(t, WildcardKey(tp1), WildcardKey(tp3))
}

func TestBindingSetMerge(t *testing.T) {
	a := NewBindingSet(Binding{Var: "x", Value: NewIRI("1")})
	b := NewBindingSet(Binding{Var: "y", Value: NewIRI("2")})
	merged, ok := a.Merge(b)
	require.True(t, ok)
	assert.Equal(t, 2, merged.Len())

	conflicting := NewBindingSet(Binding{Var: "x", Value: NewIRI("3")})
	_, ok = a.Merge(conflicting)
	assert.False(t, ok)
}

func TestBindingSetApply(t *testing.T) {
	tp, _ := NewTriplePattern(NewVariable("s"), NewIRI("p"), NewVariable("o"))
	bindings := NewBindingSet(Binding{Var: "s", Value: NewIRI("http://a")})
	bound := bindings.Apply(tp)
	assert.Equal(t, NewIRI("http://a"), bound.Subject)
	assert.True(t, bound.Object.IsVariable())
}
