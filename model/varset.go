// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import "sort"

// VarSet is a set of variable names, represented as a sorted slice of unique
// names. It supports the set operations the join-order optimiser and the
// algebra rewriter need: Contains, Intersect, Union, and overlap counting.
type VarSet []string

// NewVarSet builds a VarSet from the given (possibly duplicate, unordered)
// names.
func NewVarSet(names ...string) VarSet {
	if len(names) == 0 {
		return nil
	}
	set := append([]string(nil), names...)
	sort.Strings(set)
	out := set[:1]
	for _, n := range set[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

// VarSetOfPattern returns the VarSet of the variables used by tp.
func VarSetOfPattern(tp TriplePattern) VarSet {
	vars := tp.Variables()
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name()
	}
	return NewVarSet(names...)
}

// Contains reports whether name is in the set.
func (s VarSet) Contains(name string) bool {
	i := sort.SearchStrings(s, name)
	return i < len(s) && s[i] == name
}

// ContainsSet reports whether every member of other is in s.
func (s VarSet) ContainsSet(other VarSet) bool {
	for _, n := range other {
		if !s.Contains(n) {
			return false
		}
	}
	return true
}

// Intersect returns the variables present in both s and other.
func (s VarSet) Intersect(other VarSet) VarSet {
	var both VarSet
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			both = append(both, s[i])
			i++
			j++
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return both
}

// Union returns the variables present in either s or other.
func (s VarSet) Union(other VarSet) VarSet {
	out := make([]string, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return NewVarSet(out...)
}

// OverlapCount returns len(s.Intersect(other)) without allocating.
func (s VarSet) OverlapCount(other VarSet) int {
	count := 0
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			count++
			i++
			j++
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return count
}

func (s VarSet) String() string {
	if len(s) == 0 {
		return "{}"
	}
	out := "{"
	for i, n := range s {
		if i > 0 {
			out += ", "
		}
		out += "?" + n
	}
	return out + "}"
}
