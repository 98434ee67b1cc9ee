// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarSetDedupesAndSorts(t *testing.T) {
	s := NewVarSet("b", "a", "b", "c")
	assert.Equal(t, VarSet{"a", "b", "c"}, s)
}

func TestVarSetOverlapCount(t *testing.T) {
	a := NewVarSet("x", "y", "z")
	b := NewVarSet("y", "z", "w")
	assert.Equal(t, 2, a.OverlapCount(b))
	assert.Equal(t, 2, len(a.Intersect(b)))
	assert.Equal(t, 4, len(a.Union(b)))
}

func TestVarSetContainsSet(t *testing.T) {
	a := NewVarSet("x", "y", "z")
	assert.True(t, a.ContainsSet(NewVarSet("x", "z")))
	assert.False(t, a.ContainsSet(NewVarSet("x", "q")))
}
