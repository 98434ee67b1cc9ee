// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import "fmt"

// Statement is a fully bound RDF triple, as returned by
// TripleSource.GetStatements.
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func (s Statement) String() string {
	return fmt.Sprintf("%s %s %s .", s.Subject, s.Predicate, s.Object)
}
