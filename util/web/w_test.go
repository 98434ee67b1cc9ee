// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorSetsStatusAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, 400, "bad %s", "input")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "bad input\n", w.Body.String())
}

func TestWriteSkipsNilAndUsesFirstNonNil(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, nil, "hello")
	assert.Equal(t, "hello", w.Body.String())
}

func TestWriteEncodesStructsAsJSON(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, struct {
		Name string `json:"name"`
	}{Name: "fedx"})
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"name":"fedx"}`, w.Body.String())
}

func TestWriteRendersErrorAsInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, errors.New("boom"))
	assert.Equal(t, 500, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestWriteWithNoArgsIsNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w)
	assert.Equal(t, 204, w.Code)
}
