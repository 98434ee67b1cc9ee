// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Command fedx-client is a command-line tool for querying a running fedx
// federation engine over its HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cheggaaa/pb/v3"
	docopt "github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/thbinhqn/fedx/util/debuglog"
)

var fmtr = message.NewPrinter(language.English)

const usage = `fedx-client is a command-line tool for querying a running fedx federation engine.

Usage:
  fedx-client [--api=HOST -t=DUR] query [--select=VARS] PATTERN...
  fedx-client [--api=HOST] endpoints

Options:
  --api=HOST                Host and port of the fedx API server [default: localhost:8080]
  -t=DUR, --timeout=DUR     Per-query timeout passed to the engine [default: 30s]
  --select=VARS             Comma-separated variable names to project (default: every bound variable)

PATTERN is one triple pattern written as three whitespace-separated terms,
subject predicate object, e.g.:

  fedx-client query "?person <http://xmlns.com/foaf/0.1/knows> ?friend"
`

type options struct {
	APIHost       string `docopt:"--api"`
	TimeoutString string `docopt:"--timeout"`
	Timeout       time.Duration
	Select        string `docopt:"--select"`
	Patterns      []string `docopt:"PATTERN"`

	Query     bool `docopt:"query"`
	Endpoints bool `docopt:"endpoints"`
}

func parseArgs() *options {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("Error parsing command-line arguments: %v", err)
	}
	var o options
	if err := opts.Bind(&o); err != nil {
		log.Fatalf("Error binding command-line arguments: %v\nfrom: %+v", err, opts)
	}
	o.Timeout, err = time.ParseDuration(o.TimeoutString)
	if err != nil {
		log.Fatalf("Unable to parse --timeout: %v", err)
	}
	return &o
}

func main() {
	debuglog.Configure(debuglog.Options{})
	opts := parseArgs()

	switch {
	case opts.Query:
		if err := runQuery(opts); err != nil {
			log.Fatalf("Error executing query: %v", err)
		}
	case opts.Endpoints:
		if err := runEndpoints(opts); err != nil {
			log.Fatalf("Error listing endpoints: %v", err)
		}
	default:
		log.Fatal("command not implemented")
	}
}

type patternJSON struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

type queryRequest struct {
	Patterns      []patternJSON `json:"patterns"`
	Select        []string      `json:"select,omitempty"`
	TimeoutMillis int64         `json:"timeoutMillis,omitempty"`
}

type sparqlValueJSON struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type sparqlResultsResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlValueJSON `json:"bindings"`
	} `json:"results"`
}

func parsePattern(raw string) (patternJSON, error) {
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return patternJSON{}, fmt.Errorf("pattern %q must have exactly 3 terms (subject predicate object), got %d", raw, len(fields))
	}
	return patternJSON{Subject: fields[0], Predicate: fields[1], Object: fields[2]}, nil
}

func runQuery(opts *options) error {
	req := queryRequest{TimeoutMillis: opts.Timeout.Milliseconds()}
	for _, raw := range opts.Patterns {
		p, err := parsePattern(raw)
		if err != nil {
			return err
		}
		req.Patterns = append(req.Patterns, p)
	}
	if opts.Select != "" {
		for _, v := range strings.Split(opts.Select, ",") {
			req.Select = append(req.Select, strings.TrimSpace(v))
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	client := &http.Client{Timeout: opts.Timeout + 5*time.Second}
	resp, err := client.Post("http://"+opts.APIHost+"/sparql", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request to %s: %w", opts.APIHost, err)
	}
	defer resp.Body.Close()

	var results sparqlResultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	bar := pb.New(len(results.Results.Bindings))
	bar.Start()
	printResults(results, bar)
	bar.Finish()
	fmtr.Printf("%d results\n", len(results.Results.Bindings))
	return nil
}

func printResults(results sparqlResultsResponse, bar *pb.ProgressBar) {
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(results.Head.Vars, "\t"))
	for _, row := range results.Results.Bindings {
		vars := results.Head.Vars
		if len(vars) == 0 {
			vars = make([]string, 0, len(row))
			for name := range row {
				vars = append(vars, name)
			}
		}
		cells := make([]string, len(vars))
		for i, v := range vars {
			cells[i] = formatValue(row[v])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
		bar.Increment()
	}
	tw.Flush()
}

func formatValue(v sparqlValueJSON) string {
	switch v.Type {
	case "uri":
		return "<" + v.Value + ">"
	case "bnode":
		return "_:" + v.Value
	default:
		if v.Datatype != "" {
			return fmt.Sprintf("%q^^<%s>", v.Value, v.Datatype)
		}
		if v.Lang != "" {
			return fmt.Sprintf("%q@%s", v.Value, v.Lang)
		}
		return fmt.Sprintf("%q", v.Value)
	}
}

type endpointInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

func runEndpoints(opts *options) error {
	resp, err := http.Get("http://" + opts.APIHost + "/endpoints")
	if err != nil {
		return fmt.Errorf("request to %s: %w", opts.APIHost, err)
	}
	defer resp.Body.Close()

	var endpoints []endpointInfo
	if err := json.NewDecoder(resp.Body).Decode(&endpoints); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tLOCATION")
	for _, e := range endpoints {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Type, e.Location)
	}
	tw.Flush()
	fmtr.Printf("%d endpoints\n", len(endpoints))
	return nil
}
