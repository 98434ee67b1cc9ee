// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/model"
)

func pattern(t *testing.T) model.TriplePattern {
	tp, err := model.NewTriplePattern(model.NewVariable("s"), model.NewIRI("p"), model.NewVariable("o"))
	if err != nil {
		t.Fatal(err)
	}
	return tp
}

func TestCacheDefaultsToPossible(t *testing.T) {
	c := New()
	sub := model.WildcardKey(pattern(t))
	assert.Equal(t, PossiblyHasStatements, c.CanProvideStatements(sub, endpoint.ID("ep1")))
}

func TestCacheRecordsPositiveAndNegative(t *testing.T) {
	c := New()
	sub := model.WildcardKey(pattern(t))
	ep := endpoint.ID("ep1")

	c.UpdateEntry(sub, ep, true, false)
	assert.Equal(t, HasRemoteStatements, c.CanProvideStatements(sub, ep))

	c.UpdateEntry(sub, ep, false, false)
	assert.Equal(t, HasRemoteStatements, c.CanProvideStatements(sub, ep), "a positive result must not regress to None")
}

func TestCacheLocalVsRemote(t *testing.T) {
	c := New()
	sub := model.WildcardKey(pattern(t))
	ep := endpoint.ID("local1")
	c.UpdateEntry(sub, ep, true, true)
	assert.Equal(t, HasLocalStatements, c.CanProvideStatements(sub, ep))
	assert.Equal(t, 1, c.Len())
}

func TestCacheNegativeRecordedWhenNoPriorEntry(t *testing.T) {
	c := New()
	sub := model.WildcardKey(pattern(t))
	ep := endpoint.ID("ep2")
	c.UpdateEntry(sub, ep, false, false)
	assert.Equal(t, None, c.CanProvideStatements(sub, ep))
	assert.False(t, None.Positive())
}
