// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thbinhqn/fedx/model"
)

// consumingBufferSize is the depth of the bounded queue a SPARQL
// TripleSource drains its HTTP response body into, so the underlying
// connection returns to the pool as soon as the body is fully read instead
// of waiting on a slow consumer.
const consumingBufferSize = 64

// SparqlTripleSource is a TripleSource backed by a remote SPARQL 1.1
// Protocol endpoint (SPARQL Query over HTTP, results in the SPARQL 1.1
// Query Results JSON Format).
type SparqlTripleSource struct {
	serviceURL string
	client     *http.Client
	usePrepared bool
}

// SparqlOptions configures a SparqlTripleSource.
type SparqlOptions struct {
	// Client is the HTTP client used for queries; if nil, a client with a
	// generous per-request timeout is constructed.
	Client *http.Client
	// SupportsPreparedQueries reports whether the endpoint's operator has
	// confirmed it can evaluate the VALUES-batched queries the bound join
	// generates without excessive cost; see UsePreparedQuery.
	SupportsPreparedQueries bool
}

// NewSparqlTripleSource returns a TripleSource that talks SPARQL 1.1
// Protocol to serviceURL.
func NewSparqlTripleSource(serviceURL string, opts SparqlOptions) *SparqlTripleSource {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &SparqlTripleSource{
		serviceURL:  serviceURL,
		client:      client,
		usePrepared: opts.SupportsPreparedQueries,
	}
}

func (s *SparqlTripleSource) UsePreparedQuery() bool { return s.usePrepared }

func (s *SparqlTripleSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// sparqlResults is the subset of the SPARQL 1.1 Query Results JSON Format
// this client understands.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

type sparqlValue struct {
	Type     string `json:"type"` // "uri", "literal", "bnode"
	Value    string `json:"value"`
	Lang     string `json:"xml:lang"`
	Datatype string `json:"datatype"`
}

func (v sparqlValue) toTerm() model.Term {
	switch v.Type {
	case "uri":
		return model.NewIRI(v.Value)
	case "bnode":
		return model.NewBlank(v.Value)
	default:
		if v.Datatype != "" {
			return model.NewTypedLiteral(v.Value, v.Datatype)
		}
		return model.NewLiteral(v.Value, v.Lang)
	}
}

// doQuery executes sparql against the endpoint and parses the JSON results.
func (s *SparqlTripleSource) doQuery(ctx context.Context, sparql string) (*sparqlResults, error) {
	form := url.Values{"query": {sparql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("endpoint: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("endpoint: query %s: %w", s.serviceURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("endpoint: read response from %s: %w", s.serviceURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint: %s returned %s: %s", s.serviceURL, resp.Status, bytes.TrimSpace(body))
	}
	var parsed sparqlResults
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("endpoint: parse results from %s: %w", s.serviceURL, err)
	}
	return &parsed, nil
}

func (s *SparqlTripleSource) Evaluate(ctx context.Context, sparql string) (Stream[model.BindingSet], error) {
	logrus.WithField("endpoint", s.serviceURL).Debug("evaluating query")
	parsed, err := s.doQuery(ctx, sparql)
	if err != nil {
		return nil, err
	}
	values := make(chan model.BindingSet, consumingBufferSize)
	done := make(chan struct{})
	var outErr error
	go func() {
		defer close(done)
		defer close(values)
		for _, row := range parsed.Results.Bindings {
			bindings := make([]model.Binding, 0, len(row))
			for name, v := range row {
				bindings = append(bindings, model.Binding{Var: name, Value: v.toTerm()})
			}
			select {
			case values <- model.NewBindingSet(bindings...):
			case <-ctx.Done():
				outErr = ctx.Err()
				return
			}
		}
	}()
	return newChanStream[model.BindingSet](values, done, &outErr, func() {}), nil
}

func (s *SparqlTripleSource) GetStatements(ctx context.Context, tp model.TriplePattern) (Stream[model.Statement], error) {
	query := buildStatementsQuery(tp)
	parsed, err := s.doQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	values := make(chan model.Statement, consumingBufferSize)
	done := make(chan struct{})
	var outErr error
	go func() {
		defer close(done)
		defer close(values)
		for _, row := range parsed.Results.Bindings {
			stmt := model.Statement{Subject: tp.Subject, Predicate: tp.Predicate, Object: tp.Object}
			if tp.Subject.IsVariable() {
				stmt.Subject = row["s"].toTerm()
			}
			if tp.Predicate.IsVariable() {
				stmt.Predicate = row["p"].toTerm()
			}
			if tp.Object.IsVariable() {
				stmt.Object = row["o"].toTerm()
			}
			select {
			case values <- stmt:
			case <-ctx.Done():
				outErr = ctx.Err()
				return
			}
		}
	}()
	return newChanStream[model.Statement](values, done, &outErr, func() {}), nil
}

// Ask reports whether tp (with bindings applied) matches at least one
// remote statement. SPARQL ASK is used directly; if the endpoint's Boolean
// result is unexpectedly absent this falls back to SELECT ... LIMIT 1,
// which every SPARQL 1.1 endpoint supports.
func (s *SparqlTripleSource) Ask(ctx context.Context, tp model.TriplePattern, bindings model.BindingSet) (bool, error) {
	bound := bindings.Apply(tp)
	query := buildAskQuery(bound)
	parsed, err := s.doQuery(ctx, query)
	if err != nil {
		return false, err
	}
	if parsed.Boolean != nil {
		return *parsed.Boolean, nil
	}
	logrus.WithField("endpoint", s.serviceURL).Debug("ASK response missing boolean field, falling back to SELECT LIMIT 1")
	query = buildSelectLimit1Query(bound)
	parsed, err = s.doQuery(ctx, query)
	if err != nil {
		return false, err
	}
	return len(parsed.Results.Bindings) > 0, nil
}

func buildStatementsQuery(tp model.TriplePattern) string {
	var b strings.Builder
	b.WriteString("SELECT")
	slot := func(t model.Term, name string) string {
		if t.IsVariable() {
			return "?" + name
		}
		return t.String()
	}
	for _, name := range []string{"s", "p", "o"} {
		switch name {
		case "s":
			if tp.Subject.IsVariable() {
				b.WriteString(" ?s")
			}
		case "p":
			if tp.Predicate.IsVariable() {
				b.WriteString(" ?p")
			}
		case "o":
			if tp.Object.IsVariable() {
				b.WriteString(" ?o")
			}
		}
	}
	fmt.Fprintf(&b, " WHERE { %s %s %s . }", slot(tp.Subject, "s"), slot(tp.Predicate, "p"), slot(tp.Object, "o"))
	return b.String()
}

func buildAskQuery(tp model.TriplePattern) string {
	return fmt.Sprintf("ASK { %s %s %s . }", tp.Subject, tp.Predicate, tp.Object)
}

func buildSelectLimit1Query(tp model.TriplePattern) string {
	return fmt.Sprintf("SELECT * WHERE { %s %s %s . } LIMIT 1", tp.Subject, tp.Predicate, tp.Object)
}

