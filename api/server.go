// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the federation engine over HTTP: a query endpoint
// that accepts a basic graph pattern and returns solutions in the SPARQL
// 1.1 Query Results JSON Format, plus a Prometheus /metrics endpoint and a
// small diagnostics surface for the registered members.
package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/thbinhqn/fedx/config"
	"github.com/thbinhqn/fedx/federation"
	"github.com/thbinhqn/fedx/util/web"
)

// Server is the HTTP front end for a Federation.
type Server struct {
	cfg *config.Fedx
	fed *federation.Federation
}

// New returns a Server for fed. It will not accept traffic until Run is
// called.
func New(cfg *config.Fedx, fed *federation.Federation) *Server {
	return &Server{cfg: cfg, fed: fed}
}

// Run starts the HTTP listener(s) and blocks until one of them fails.
func (s *Server) Run() error {
	m := httprouter.New()
	m.POST("/sparql", s.query)
	m.GET("/endpoints", s.endpoints)

	metricsAddr := ""
	if s.cfg.API != nil {
		metricsAddr = s.cfg.API.MetricsAddress
	}
	if metricsAddr == "" || metricsAddr == s.httpAddress() {
		m.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	} else {
		go func() {
			log.Infof("Serving Prometheus metrics on %s", metricsAddr)
			log.Fatal(http.ListenAndServe(metricsAddr, promhttp.Handler()))
		}()
	}

	logged := func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("[api] %s %s", r.Method, r.URL)
		m.ServeHTTP(w, r)
	}
	log.Infof("Serving federation API on %s", s.httpAddress())
	return http.ListenAndServe(s.httpAddress(), http.HandlerFunc(logged))
}

func (s *Server) httpAddress() string {
	if s.cfg.API == nil {
		return ":8080"
	}
	return s.cfg.API.HTTPAddress
}

// endpoints reports every registered federation member and its type, for
// operator diagnostics.
func (s *Server) endpoints(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	type endpointInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Location string `json:"location"`
	}
	out := make([]endpointInfo, 0, len(s.fed.Endpoints()))
	for _, ep := range s.fed.Endpoints() {
		out = append(out, endpointInfo{
			ID:       string(ep.ID()),
			Name:     ep.Name(),
			Type:     ep.Type().String(),
			Location: ep.Location(),
		})
	}
	web.Write(w, out)
}
