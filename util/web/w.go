// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package web aids in writing HTTP servers.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WriteError writes a textual error response to w with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, formatMsg string, params ...interface{}) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, formatMsg, params...)
	io.WriteString(w, "\n")
}

// HTTPWriter lets a type control how it is rendered as an HTTP response.
// Values passed to Write that implement this interface have their
// HTTPWrite method called to generate the response.
type HTTPWriter interface {
	HTTPWrite(w http.ResponseWriter)
}

// Write is a helper to write out an HTTP response. It writes the first
// non-nil val in the list (so callers can do web.Write(w, err, resp)) and
// dispatches on its type: []byte is written verbatim, string as plain text,
// error as a 500 with the error text, HTTPWriter via its own method, and
// anything else as JSON.
func Write(w http.ResponseWriter, vals ...interface{}) {
	for _, val := range vals {
		if val == nil {
			continue
		}
		switch tv := val.(type) {
		case []byte:
			w.Write(tv)
		case string:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			io.WriteString(w, tv)
		case HTTPWriter:
			tv.HTTPWrite(w)
		case error:
			WriteError(w, http.StatusInternalServerError, "Unexpected error: %s", tv)
		default:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(tv)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
