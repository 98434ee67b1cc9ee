// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package model defines the RDF/SPARQL value types shared by every layer of
// the federation engine: terms, triple patterns, subquery cache keys, and
// binding sets. These are the nouns that the planner, the source selector,
// and the parallel evaluator all operate on.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// TermKind identifies which alternative of a Term is populated.
type TermKind uint8

const (
	// KindVariable marks a Term that is an unbound query variable.
	KindVariable TermKind = iota
	// KindIRI marks a Term that is a bound IRI (URI) reference.
	KindIRI
	// KindBlank marks a Term that is a bound blank node identifier.
	KindBlank
	// KindLiteral marks a Term that is a bound RDF literal.
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindVariable:
		return "Variable"
	case KindIRI:
		return "IRI"
	case KindBlank:
		return "Blank"
	case KindLiteral:
		return "Literal"
	default:
		return fmt.Sprintf("TermKind(%d)", uint8(k))
	}
}

// Term is one slot of a triple pattern: either a bound RDF value (IRI, blank
// node, or literal) or a named variable. Term is a value type; the zero Term
// is not valid, use NewVariable/NewIRI/etc.
type Term struct {
	kind     TermKind
	value    string // IRI text, blank node label, or literal lexical form
	datatype string // literal datatype IRI, empty for plain/string literals
	lang     string // literal language tag, empty if datatype is set or absent
}

// NewVariable returns a Term representing an unbound query variable named
// name (without the leading '?' or '$').
func NewVariable(name string) Term {
	return Term{kind: KindVariable, value: name}
}

// NewIRI returns a Term for a bound IRI.
func NewIRI(iri string) Term {
	return Term{kind: KindIRI, value: iri}
}

// NewBlank returns a Term for a bound blank node.
func NewBlank(label string) Term {
	return Term{kind: KindBlank, value: label}
}

// NewLiteral returns a Term for a plain or language-tagged literal.
func NewLiteral(lexical, lang string) Term {
	return Term{kind: KindLiteral, value: lexical, lang: lang}
}

// NewTypedLiteral returns a Term for a datatyped literal.
func NewTypedLiteral(lexical, datatype string) Term {
	return Term{kind: KindLiteral, value: lexical, datatype: datatype}
}

// Kind reports which alternative this Term holds.
func (t Term) Kind() TermKind { return t.kind }

// IsVariable reports whether t is an unbound variable.
func (t Term) IsVariable() bool { return t.kind == KindVariable }

// Name returns the variable name. It panics if t is not a variable.
func (t Term) Name() string {
	if t.kind != KindVariable {
		panic("model: Name called on a bound Term")
	}
	return t.value
}

// Value returns the lexical value of a bound term: the IRI text, the blank
// node label, or the literal's lexical form. It panics for a variable.
func (t Term) Value() string {
	if t.kind == KindVariable {
		panic("model: Value called on a variable Term")
	}
	return t.value
}

// Datatype returns the literal datatype IRI, or "" if unset or not a literal.
func (t Term) Datatype() string { return t.datatype }

// Lang returns the literal language tag, or "" if unset or not a literal.
func (t Term) Lang() string { return t.lang }

// Equal reports whether t and other denote the same RDF term. Two variables
// are Equal only if they share a Name; callers that need alpha-equivalence
// (variable-naming independence) should use WildcardKey instead.
func (t Term) Equal(other Term) bool {
	return t.kind == other.kind &&
		t.value == other.value &&
		t.datatype == other.datatype &&
		t.lang == other.lang
}

// String renders t the way it would appear in SPARQL text: "?x", "<iri>",
// "_:b0", or a quoted literal.
func (t Term) String() string {
	switch t.kind {
	case KindVariable:
		return "?" + t.value
	case KindIRI:
		return "<" + t.value + ">"
	case KindBlank:
		return "_:" + t.value
	case KindLiteral:
		switch {
		case t.datatype != "":
			return fmt.Sprintf("%q^^<%s>", t.value, t.datatype)
		case t.lang != "":
			return fmt.Sprintf("%q@%s", t.value, t.lang)
		default:
			return fmt.Sprintf("%q", t.value)
		}
	default:
		return "<invalid term>"
	}
}

// TriplePattern is a single (subject, predicate, object) triple in a basic
// graph pattern. Per the data model invariant, at least one of the three
// components must be a variable; an all-constant pattern degenerates to an
// ASK and is rejected by NewTriplePattern.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriplePattern validates and constructs a TriplePattern.
func NewTriplePattern(s, p, o Term) (TriplePattern, error) {
	tp := TriplePattern{Subject: s, Predicate: p, Object: o}
	if !s.IsVariable() && !p.IsVariable() && !o.IsVariable() {
		return TriplePattern{}, fmt.Errorf("model: triple pattern %v has no variables; use Ask instead", tp)
	}
	return tp, nil
}

// Variables returns the distinct variables used by tp, in subject/predicate/
// object order.
func (tp TriplePattern) Variables() []Term {
	var vars []Term
	seen := make(map[string]bool, 3)
	add := func(t Term) {
		if t.IsVariable() && !seen[t.Name()] {
			seen[t.Name()] = true
			vars = append(vars, t)
		}
	}
	add(tp.Subject)
	add(tp.Predicate)
	add(tp.Object)
	return vars
}

func (tp TriplePattern) String() string {
	return fmt.Sprintf("%s %s %s", tp.Subject, tp.Predicate, tp.Object)
}

// SubQuery is a normalized cache key derived from a TriplePattern: bound
// slots keep their value, unbound slots collapse to a wildcard. Two patterns
// that differ only in variable naming map to the same SubQuery, which is
// exactly the property the statement-source cache relies on.
type SubQuery struct {
	key string
}

const wildcard = "*"

// WildcardKey builds the SubQuery cache key for tp.
func WildcardKey(tp TriplePattern) SubQuery {
	slot := func(t Term) string {
		if t.IsVariable() {
			return wildcard
		}
		return t.kind.String() + ":" + t.value
	}
	var b strings.Builder
	b.WriteString(slot(tp.Subject))
	b.WriteByte(' ')
	b.WriteString(slot(tp.Predicate))
	b.WriteByte(' ')
	b.WriteString(slot(tp.Object))
	return SubQuery{key: b.String()}
}

func (q SubQuery) String() string { return q.key }

// Binding is one variable/value association within a BindingSet.
type Binding struct {
	Var   string
	Value Term
}

// BindingSet is an immutable mapping from variable name to RDF value,
// representing one solution row. The zero value is the empty binding set.
type BindingSet struct {
	entries []Binding
}

// NewBindingSet builds a BindingSet from the given bindings. The bindings
// must have distinct variable names.
func NewBindingSet(bindings ...Binding) BindingSet {
	sorted := append([]Binding(nil), bindings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Var < sorted[j].Var })
	return BindingSet{entries: sorted}
}

// Len returns the number of bound variables.
func (b BindingSet) Len() int { return len(b.entries) }

// Lookup returns the value bound to name and whether it was present.
func (b BindingSet) Lookup(name string) (Term, bool) {
	i := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].Var >= name })
	if i < len(b.entries) && b.entries[i].Var == name {
		return b.entries[i].Value, true
	}
	return Term{}, false
}

// Vars returns the bound variable names in sorted order.
func (b BindingSet) Vars() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.Var
	}
	return names
}

// ForEach calls fn for every binding in sorted variable-name order.
func (b BindingSet) ForEach(fn func(name string, value Term)) {
	for _, e := range b.entries {
		fn(e.Var, e.Value)
	}
}

// Merge concatenates b and other. If they share a variable with differing
// values the bindings are incompatible; Merge returns ok=false and a zero
// BindingSet in that case, per the consistency-check invariant in the data
// model.
func (b BindingSet) Merge(other BindingSet) (merged BindingSet, ok bool) {
	out := make([]Binding, 0, len(b.entries)+len(other.entries))
	i, j := 0, 0
	for i < len(b.entries) && j < len(other.entries) {
		switch {
		case b.entries[i].Var < other.entries[j].Var:
			out = append(out, b.entries[i])
			i++
		case b.entries[i].Var > other.entries[j].Var:
			out = append(out, other.entries[j])
			j++
		default:
			if !b.entries[i].Value.Equal(other.entries[j].Value) {
				return BindingSet{}, false
			}
			out = append(out, b.entries[i])
			i++
			j++
		}
	}
	out = append(out, b.entries[i:]...)
	out = append(out, other.entries[j:]...)
	return BindingSet{entries: out}, true
}

// Apply substitutes any variable in tp that is bound in b, returning the
// resulting (possibly still partially variable) TriplePattern.
func (b BindingSet) Apply(tp TriplePattern) TriplePattern {
	sub := func(t Term) Term {
		if t.IsVariable() {
			if v, ok := b.Lookup(t.Name()); ok {
				return v
			}
		}
		return t
	}
	return TriplePattern{Subject: sub(tp.Subject), Predicate: sub(tp.Predicate), Object: sub(tp.Object)}
}

// Drop returns a copy of b with the named variables removed, if present.
func (b BindingSet) Drop(names ...string) BindingSet {
	if len(names) == 0 {
		return b
	}
	remove := make(map[string]bool, len(names))
	for _, n := range names {
		remove[n] = true
	}
	out := make([]Binding, 0, len(b.entries))
	for _, e := range b.entries {
		if !remove[e.Var] {
			out = append(out, e)
		}
	}
	return BindingSet{entries: out}
}

func (b BindingSet) String() string {
	var parts []string
	b.ForEach(func(name string, value Term) {
		parts = append(parts, fmt.Sprintf("%s=%s", name, value))
	})
	return "{" + strings.Join(parts, ", ") + "}"
}
