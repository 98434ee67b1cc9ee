// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thbinhqn/fedx/model"
)

// selectQuery renders a SELECT query over the given patterns, projecting
// every variable that appears in any of them. It is used for
// ExclusiveStatement, ExclusiveGroup, and StatementSourcePattern leaves,
// each of which reduces to a single conjunctive basic graph pattern against
// one endpoint.
func selectQuery(patterns []model.TriplePattern, bindings model.BindingSet) string {
	var vars model.VarSet
	for _, p := range patterns {
		vars = vars.Union(model.VarSetOfPattern(p))
	}
	var b strings.Builder
	b.WriteString("SELECT")
	for _, v := range vars {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	b.WriteString(" WHERE {")
	for _, p := range patterns {
		bound := bindings.Apply(p)
		fmt.Fprintf(&b, " %s %s %s .", bound.Subject, bound.Predicate, bound.Object)
	}
	b.WriteString(" }")
	return b.String()
}

// rowIndexVar is the hidden variable threaded through a bound-join batch
// query so each result row can be re-associated with the input binding
// that produced it, even though the remote endpoint may reorder or
// partially fail to match rows.
const rowIndexVar = "__fedxRow"

// boundJoinQuery renders a VALUES-bound SELECT for a batch of left-hand
// bindings against patterns, one of the two strategies the bound join uses
// depending on whether the endpoint accepts UsePreparedQuery.
func boundJoinQuery(patterns []model.TriplePattern, joinVars []string, batch []model.BindingSet) string {
	var allVars model.VarSet
	for _, p := range patterns {
		allVars = allVars.Union(model.VarSetOfPattern(p))
	}
	var b strings.Builder
	b.WriteString("SELECT")
	for _, v := range allVars {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	fmt.Fprintf(&b, " ?%s WHERE {", rowIndexVar)
	b.WriteString(" ")
	b.WriteString(bindingsToValuesClause(joinVars, rowIndexVar, batch))
	for _, p := range patterns {
		fmt.Fprintf(&b, " %s %s %s .", p.Subject, p.Predicate, p.Object)
	}
	b.WriteString(" }")
	return b.String()
}

// bindingsToValuesClause renders bindings as a SPARQL VALUES clause over
// vars, in the order given, threading rowVar through as the hidden
// row-index variable so results can be re-associated with the input
// binding that produced them.
func bindingsToValuesClause(vars []string, rowVar string, rows []model.BindingSet) string {
	var b strings.Builder
	b.WriteString("VALUES (")
	for _, v := range vars {
		b.WriteString("?")
		b.WriteString(v)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "?%s) {", rowVar)
	for i, row := range rows {
		b.WriteString(" (")
		for _, v := range vars {
			val, ok := row.Lookup(v)
			if !ok {
				b.WriteString("UNDEF ")
				continue
			}
			b.WriteString(val.String())
			b.WriteString(" ")
		}
		b.WriteString(strconv.Itoa(i))
		b.WriteString(")")
	}
	b.WriteString(" }")
	return b.String()
}
