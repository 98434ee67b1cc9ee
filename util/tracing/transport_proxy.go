// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package tracing

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	jaegerTransport "github.com/uber/jaeger-client-go/transport"

	"github.com/thbinhqn/fedx/discovery"
	"github.com/thbinhqn/fedx/util/random"
)

// placeholderHost is a dummy hostname put into the host component of a URL
// before the collector host has been determined.
const placeholderHost = "some.tracing.collector.localhost"

// newTransport returns a jaeger.Transport that sends traces to some
// collector returned by collectors, reconnecting to a different one as
// needed when the current collector isn't working.
func newTransport(collectors discovery.Locator) jaeger.Transport {
	roundTripper := &collectorProxy{
		collectors:    collectors,
		baseTransport: http.DefaultTransport.RoundTrip,
	}
	url := "http://" + placeholderHost + "/api/traces?format=jaeger.thrift"
	return jaegerTransport.NewHTTPTransport(url,
		jaegerTransport.HTTPRoundTripper(roundTripper))
}

// A collectorProxy is an http.RoundTripper that allows a client to connect
// to different servers over time.
type collectorProxy struct {
	// A locator that returns server endpoints.
	collectors    discovery.Locator
	baseTransport func(req *http.Request) (*http.Response, error)

	lock   sync.Mutex
	locked struct {
		hostPort    string
		lastErr     error
		lastSuccess time.Time
	}
}

// RoundTrip implements http.RoundTripper.
func (proxy *collectorProxy) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host != placeholderHost {
		_ = req.Body.Close()
		return nil, fmt.Errorf("tracing: Jaeger client tried to reach unexpected host: %v", req.URL.Host)
	}
	hostPort, err := proxy.getHostPort()
	if err != nil {
		_ = req.Body.Close()
		return nil, err
	}
	url2 := *req.URL
	url2.Host = hostPort
	req2 := req
	req2.URL = &url2
	resp, err := proxy.baseTransport(req2)
	if err == nil {
		if resp.StatusCode >= 400 && resp.StatusCode <= 599 {
			proxy.report(hostPort, errors.New(resp.Status))
		} else {
			proxy.report(hostPort, nil)
		}
	} else {
		proxy.report(hostPort, err)
	}
	return resp, err
}

func init() {
	random.SeedMath()
}

// getHostPort returns the best server to send a request to, or an error if
// no servers are known.
func (proxy *collectorProxy) getHostPort() (string, error) {
	proxy.lock.Lock()
	defer proxy.lock.Unlock()

	if proxy.locked.hostPort != "" {
		if proxy.locked.lastErr == nil || time.Since(proxy.locked.lastSuccess) < 10*time.Second {
			return proxy.locked.hostPort, nil
		}
	}

	endpoints := proxy.collectors.Cached().Endpoints
	others := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		hp := ep.HostPort()
		if hp != proxy.locked.hostPort {
			others = append(others, hp)
		}
	}

	if len(others) == 0 {
		if proxy.locked.hostPort == "" {
			return "", errNoServer
		}
		return proxy.locked.hostPort, nil
	}

	newHostPort := others[rand.Intn(len(others))]
	now := time.Now()
	logrus.WithFields(logrus.Fields{
		"lastError":                     proxy.locked.lastErr,
		"timeSinceLastConnectOrSuccess": now.Sub(proxy.locked.lastSuccess),
		"oldCollector":                  proxy.locked.hostPort,
		"newCollector":                  newHostPort,
	}).Info("switching Jaeger servers")
	proxy.locked.hostPort = newHostPort
	proxy.locked.lastErr = nil
	proxy.locked.lastSuccess = now
	return newHostPort, nil
}

var errNoServer = errors.New("have not discovered a Jaeger collector yet")

func (proxy *collectorProxy) report(hostPort string, err error) {
	proxy.lock.Lock()
	defer proxy.lock.Unlock()
	if proxy.locked.hostPort == hostPort {
		if err == nil {
			proxy.locked.lastSuccess = time.Now()
		}
		proxy.locked.lastErr = err
	}
}
