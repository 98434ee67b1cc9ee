// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Load parses the configuration from the given JSON file. Upon success, it
// returns a non-nil configuration. Otherwise, it returns an error, which
// already includes the filename.
func Load(filename string) (*Fedx, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reader := bufio.NewReader(f)
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	cfg := new(Fedx)
	// This **Fedx double-pointer appears to be required to detect an invalid
	// input of "null". See Test_Load/file_contains_null test.
	err = decoder.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("error decoding JSON value in %v: %v", filename, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("loading %v resulted in nil config", filename)
	}
	if decoder.More() {
		return nil, fmt.Errorf("found unexpected data after config in %v", filename)
	}
	return cfg, nil
}

// Write marshalls the configuration as JSON to the given file. It truncates
// the file if it already exists. It returns nil upon success. Otherwise, it
// returns an error, which already includes the filename.
func Write(cfg *Fedx, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	writer := bufio.NewWriter(f)
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "\t")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write %v: %v", filename, err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write %v: %v", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %v: %v", filename, err)
	}
	return nil
}
