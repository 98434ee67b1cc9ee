// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package discoveryfactory constructs service discovery implementations.
// Callers don't need to know which implementation of service discovery
// they're using; they just pass a config.Locator and get back a
// discovery.Locator.
package discoveryfactory

import (
	"context"
	"fmt"
	"sync"

	"github.com/thbinhqn/fedx/config"
	"github.com/thbinhqn/fedx/discovery"
)

// All discovery implementations are registered here at init time. The map
// key matches config.Locator.Type.
var impls = map[string]*discoveryImpl{}

type discoveryImpl struct {
	// Prevents concurrent calls to setUp.
	lock sync.Mutex
	// Initializes the implementation. Only invoked if a factory is needed.
	setUp func() (locatorFactory, error)
	// nil until the implementation has been initialized.
	newLocator locatorFactory
}

// A locatorFactory creates locators. It takes the same arguments as
// NewLocator.
type locatorFactory func(context.Context, *config.Locator) (discovery.Locator, error)

// NewLocator returns a locator as defined by cfg. It returns an error if
// the configuration is invalid or the underlying implementation cannot
// create such a locator.
func NewLocator(ctx context.Context, cfg *config.Locator) (discovery.Locator, error) {
	newLocator, err := getFactory(cfg)
	if err != nil {
		return nil, err
	}
	return newLocator(ctx, cfg)
}

// getFactory is a helper to NewLocator, split out to defer an unlock.
func getFactory(cfg *config.Locator) (locatorFactory, error) {
	impl, ok := impls[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("locator type not supported: %v", cfg.Type)
	}
	impl.lock.Lock()
	defer impl.lock.Unlock()
	if impl.newLocator == nil {
		newLocator, err := impl.setUp()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize implementation for %v locators: %v", cfg.Type, err)
		}
		impl.newLocator = newLocator
	}
	return impl.newLocator, nil
}
