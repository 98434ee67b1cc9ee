// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package discoveryfactory

import (
	"context"
	"errors"
	"net"

	"github.com/thbinhqn/fedx/config"
	"github.com/thbinhqn/fedx/discovery"
)

func init() {
	impls["static"] = &discoveryImpl{setUp: setUpStatic}
}

func setUpStatic() (locatorFactory, error) {
	return newStaticLocator, nil
}

// newStaticLocator builds a discovery.Locator that never changes, from the
// host:port strings in cfg.Addresses.
func newStaticLocator(ctx context.Context, cfg *config.Locator) (discovery.Locator, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("static locator has no addresses")
	}
	endpoints := make([]*discovery.Endpoint, len(cfg.Addresses))
	for i, addr := range cfg.Addresses {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		endpoints[i] = &discovery.Endpoint{Network: "tcp", Host: host, Port: port}
	}
	return discovery.NewStaticLocator(endpoints), nil
}
