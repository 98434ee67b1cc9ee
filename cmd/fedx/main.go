// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Command fedx runs a federation engine daemon: it loads a member list and
// engine tunables from a config file, exposes a SPARQL query endpoint over
// HTTP, and reports Prometheus metrics.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/thbinhqn/fedx/api"
	"github.com/thbinhqn/fedx/config"
	"github.com/thbinhqn/fedx/endpoint"
	"github.com/thbinhqn/fedx/federation"
	"github.com/thbinhqn/fedx/util/debuglog"
	"github.com/thbinhqn/fedx/util/tracing"
)

func main() {
	debuglog.Configure(debuglog.Options{})
	cfgFile := flag.String("cfg", "config.json", "config file")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if cfg.API == nil {
		log.Fatal("api field missing in config")
	}
	if cfg.Log.Type == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.Infof("Using config: %+v", cfg)

	tracer, err := tracing.New("fedx", cfg.Tracing)
	if err != nil {
		log.Fatalf("Unable to initialize distributed tracing: %v", err)
	}
	defer tracer.Close()

	maxQueryTime, err := cfg.Engine.MaxQueryTime()
	if err != nil {
		log.Fatalf("Unable to parse engine.enforceMaxQueryTime: %v", err)
	}

	fed := federation.New(federation.Config{
		JoinWorkers:         cfg.Engine.JoinWorkerThreads,
		UnionWorkers:        cfg.Engine.UnionWorkerThreads,
		BoundJoinBatchSize:  cfg.Engine.BoundJoinBlockSize,
		DefaultQueryTimeout: maxQueryTime,
		EnableMonitoring:    cfg.Engine.EnableMonitoring,
	})

	for _, member := range cfg.Members {
		if err := addMember(fed, member); err != nil {
			log.Fatalf("Unable to add federation member %s: %v", member.ID, err)
		}
	}
	log.Infof("Federation started with %d members", len(fed.Endpoints()))

	if cfg.Engine.EnableMonitoring {
		log.Info("Prometheus monitoring enabled")
	}

	server := api.New(cfg, fed)
	go func() {
		log.Fatal(server.Run())
	}()

	waitForQuit()
	log.Info("fedx exiting")
	if err := fed.Shutdown(); err != nil {
		log.WithError(err).Warn("error during federation shutdown")
	}
}

// addMember constructs the endpoint.TripleSource factory appropriate for
// member.Type and registers it with fed.
func addMember(fed *federation.Federation, member config.Member) error {
	var typ endpoint.Type
	switch member.Type {
	case "sparql":
		typ = endpoint.SparqlEndpoint
	case "remoteRepository":
		typ = endpoint.RemoteRepository
	case "remoteResolvable":
		typ = endpoint.RemoteResolvable
	case "native":
		typ = endpoint.NativeStore
	default:
		return fmt.Errorf("unknown member type %q", member.Type)
	}

	cfg := endpoint.Config{
		ID:       endpoint.ID(member.ID),
		Name:     member.Name,
		Type:     typ,
		Location: member.Location,
		Writable: member.Writable,
	}
	factory := func() (endpoint.TripleSource, error) {
		if typ == endpoint.NativeStore {
			return endpoint.NewLocalTripleSource(), nil
		}
		opts := endpoint.SparqlOptions{SupportsPreparedQueries: typ == endpoint.RemoteResolvable}
		return endpoint.NewSparqlTripleSource(member.Location, opts), nil
	}
	return fed.AddEndpoint(cfg, factory)
}

// waitForQuit blocks until the process receives SIGINT or SIGTERM.
func waitForQuit() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
