// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"

	"github.com/thbinhqn/fedx/federation"
	"github.com/thbinhqn/fedx/model"
	"github.com/thbinhqn/fedx/util/web"
)

// queryRequest is the JSON body accepted by POST /sparql. The engine is
// handed an already-parsed basic graph pattern rather than raw SPARQL
// text: parsing SPARQL query syntax is outside this engine's scope, the
// same way FedX itself sits behind RDF4J's parser.
type queryRequest struct {
	Patterns      []patternJSON `json:"patterns"`
	Select        []string      `json:"select,omitempty"`
	TimeoutMillis int64         `json:"timeoutMillis,omitempty"`
}

type patternJSON struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// sparqlResultsResponse is the SPARQL 1.1 Query Results JSON Format.
type sparqlResultsResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlValueJSON `json:"bindings"`
	} `json:"results"`
}

type sparqlValueJSON struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func termToJSON(t model.Term) sparqlValueJSON {
	switch t.Kind() {
	case model.KindIRI:
		return sparqlValueJSON{Type: "uri", Value: t.Value()}
	case model.KindBlank:
		return sparqlValueJSON{Type: "bnode", Value: t.Value()}
	default:
		return sparqlValueJSON{Type: "literal", Value: t.Value(), Lang: t.Lang(), Datatype: t.Datatype()}
	}
}

// parseTerm parses one triple-pattern slot in the same textual form
// model.Term.String renders: "?x" for a variable, "<iri>" for an IRI,
// "_:label" for a blank node, or a double-quoted literal optionally
// suffixed with @lang or ^^<datatype>.
func parseTerm(s string) (model.Term, error) {
	switch {
	case strings.HasPrefix(s, "?") || strings.HasPrefix(s, "$"):
		name := s[1:]
		if name == "" {
			return model.Term{}, fmt.Errorf("api: empty variable name in %q", s)
		}
		return model.NewVariable(name), nil
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return model.NewIRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		return model.NewBlank(s[2:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteralTerm(s)
	default:
		return model.Term{}, fmt.Errorf("api: cannot parse term %q", s)
	}
}

func parseLiteralTerm(s string) (model.Term, error) {
	end := strings.LastIndex(s, `"`)
	if end <= 0 {
		return model.Term{}, fmt.Errorf("api: unterminated literal %q", s)
	}
	lexical := s[1:end]
	suffix := s[end+1:]
	switch {
	case strings.HasPrefix(suffix, "^^<") && strings.HasSuffix(suffix, ">"):
		return model.NewTypedLiteral(lexical, suffix[3:len(suffix)-1]), nil
	case strings.HasPrefix(suffix, "@"):
		return model.NewLiteral(lexical, suffix[1:]), nil
	case suffix == "":
		return model.NewLiteral(lexical, ""), nil
	default:
		return model.Term{}, fmt.Errorf("api: cannot parse literal suffix %q", suffix)
	}
}

func (p patternJSON) toTriplePattern() (model.TriplePattern, error) {
	s, err := parseTerm(p.Subject)
	if err != nil {
		return model.TriplePattern{}, err
	}
	pr, err := parseTerm(p.Predicate)
	if err != nil {
		return model.TriplePattern{}, err
	}
	o, err := parseTerm(p.Object)
	if err != nil {
		return model.TriplePattern{}, err
	}
	return model.NewTriplePattern(s, pr, o)
}

// query handles POST /sparql: it evaluates the request's basic graph
// pattern against the federation and streams back a SPARQL 1.1 Query
// Results JSON document.
func (s *Server) query(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	span, ctx := opentracing.StartSpanFromContext(r.Context(), "api.query")
	defer span.Finish()

	var req queryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "api: malformed request body: %v", err)
		return
	}
	if len(req.Patterns) == 0 {
		web.WriteError(w, http.StatusBadRequest, "api: request has no patterns")
		return
	}

	patterns := make([]model.TriplePattern, 0, len(req.Patterns))
	for _, p := range req.Patterns {
		tp, err := p.toTriplePattern()
		if err != nil {
			web.WriteError(w, http.StatusBadRequest, "api: %v", err)
			return
		}
		patterns = append(patterns, tp)
	}

	var selectVars model.VarSet
	if len(req.Select) > 0 {
		vars := make([]string, len(req.Select))
		for i, v := range req.Select {
			vars[i] = strings.TrimPrefix(v, "?")
		}
		selectVars = model.NewVarSet(vars...)
	}

	q := federation.Query{
		Patterns:         patterns,
		Select:           selectVars,
		MaxExecutionTime: time.Duration(req.TimeoutMillis) * time.Millisecond,
	}
	result, err := s.fed.Evaluate(ctx, q)
	if err != nil {
		web.WriteError(w, http.StatusInternalServerError, "api: %v", err)
		return
	}
	defer result.Stream.Close()

	resp := sparqlResultsResponse{}
	resp.Head.Vars = req.Select
	resp.Results.Bindings = make([]map[string]sparqlValueJSON, 0, 16)
	for {
		row, ok, err := result.Stream.Next(ctx)
		if err != nil {
			log.WithError(err).Warn("api: query evaluation failed mid-stream")
			web.WriteError(w, http.StatusInternalServerError, "api: %v", err)
			return
		}
		if !ok {
			break
		}
		binding := make(map[string]sparqlValueJSON, row.Len())
		row.ForEach(func(name string, value model.Term) {
			binding[name] = termToJSON(value)
		})
		resp.Results.Bindings = append(resp.Results.Bindings, binding)
	}
	web.Write(w, resp)
}
