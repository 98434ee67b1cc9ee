// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

package algebra

// Children returns the immediate child nodes of n, or nil for a leaf. It
// exists so generic tree transforms (counting, searching, rebuilding) don't
// need their own Visitor when they only care about structure, not node
// kind.
func Children(n Node) []Node {
	switch t := n.(type) {
	case *NJoin:
		return t.Children
	case *NUnion:
		return t.Children
	case *Filter:
		return []Node{t.Child}
	case *Projection:
		return []Node{t.Child}
	case *BoundJoin:
		return []Node{t.Left, t.Right}
	default:
		return nil
	}
}

// Walk calls fn for n and every descendant, in pre-order. Walk stops and
// returns fn's error as soon as fn returns one.
func Walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range Children(n) {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// CountNodes returns the number of nodes in the subtree rooted at n,
// including n itself.
func CountNodes(n Node) int {
	count := 0
	Walk(n, func(Node) error { count++; return nil }) //nolint:errcheck // fn never errors
	return count
}

// Leaves returns every leaf node (EmptyStatementPattern, ExclusiveStatement,
// StatementSourcePattern, or ExclusiveGroup) in the subtree rooted at n.
func Leaves(n Node) []Node {
	var out []Node
	Walk(n, func(cur Node) error { //nolint:errcheck // fn never errors
		if len(Children(cur)) == 0 {
			out = append(out, cur)
		}
		return nil
	})
	return out
}
