// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"sync"
)

// StaticLocator is a Locator that returns a Result stored within. It's
// possible to update the StaticLocator's endpoints using Set.
type StaticLocator struct {
	lock sync.Mutex
	// Protected by lock.
	locked struct {
		result  Result
		waiting chan struct{}
	}
}

var _ Locator = (*StaticLocator)(nil)

// NewStaticLocator returns a Locator containing a single Result that can
// only be updated externally via Set. The caller may not modify endpoints
// after calling this function. When endpoints is empty, Result.Version is
// 0; otherwise it's 1.
func NewStaticLocator(endpoints []*Endpoint) *StaticLocator {
	locator := &StaticLocator{}
	v := uint64(0)
	if len(endpoints) > 0 {
		v = uint64(1)
	}
	locator.locked.result = Result{Endpoints: endpoints, Version: v}
	locator.locked.waiting = make(chan struct{})
	return locator
}

// Set updates the Locator to return the given endpoints. The caller may not
// modify endpoints after calling this function.
func (locator *StaticLocator) Set(endpoints []*Endpoint) {
	locator.lock.Lock()
	defer locator.lock.Unlock()
	locator.locked.result = Result{
		Endpoints: endpoints,
		Version:   locator.locked.result.Version + 1,
	}
	close(locator.locked.waiting)
	locator.locked.waiting = make(chan struct{})
}

// Cached implements Locator.
func (locator *StaticLocator) Cached() Result {
	locator.lock.Lock()
	res := locator.locked.result
	locator.lock.Unlock()
	return res
}

// WaitForUpdate implements Locator.
func (locator *StaticLocator) WaitForUpdate(ctx context.Context, oldVersion uint64) (Result, error) {
	for {
		locator.lock.Lock()
		res := locator.locked.result
		waiting := locator.locked.waiting
		locator.lock.Unlock()

		if res.Version > oldVersion {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-waiting:
		}
	}
}

// String implements Locator.
func (locator *StaticLocator) String() string {
	result := locator.Cached()
	switch len(result.Endpoints) {
	case 0:
		return "empty StaticLocator"
	case 1:
		return fmt.Sprintf("StaticLocator(%v)", result.Endpoints[0])
	default:
		return fmt.Sprintf("StaticLocator(len=%v, first=%v)", len(result.Endpoints), result.Endpoints[0])
	}
}
