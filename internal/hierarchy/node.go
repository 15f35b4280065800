// Package hierarchy assembles flat (item, parent) records into immutable
// category trees.
//
// Two builders share one lifecycle. Builder places items whose parent
// categories are reachable through a Parent() accessor, materializing missing
// ancestors on the way up. CategoryTree takes bare ids and parent ids, creating
// placeholders for parents referenced before they are declared and pruning
// categories that end up without any field below them.
//
// Both are mutable until Finalize and refuse further changes afterwards. The
// Tree they return is read-only and safe to share between goroutines.
package hierarchy

import "slices"

// Node is a finalized tree node. It has no mutators.
type Node[T any] struct {
	id       string
	name     string
	payload  T
	leaf     bool
	root     bool
	children []*Node[T]
}

func (n *Node[T]) ID() string   { return n.id }
func (n *Node[T]) Name() string { return n.name }

// Payload returns the wrapped domain object. The synthetic root carries the
// zero value.
func (n *Node[T]) Payload() T   { return n.payload }
func (n *Node[T]) IsLeaf() bool { return n.leaf }
func (n *Node[T]) IsRoot() bool { return n.root }

// Children returns a copy of the node's ordered children.
func (n *Node[T]) Children() []*Node[T] {
	return slices.Clone(n.children)
}

// NumChildren returns the number of children without copying them.
func (n *Node[T]) NumChildren() int { return len(n.children) }

// Tree is the immutable handle returned by Finalize.
type Tree[T any] struct {
	root  *Node[T]
	index map[string]*Node[T]
}

func newTree[T any](root *Node[T]) *Tree[T] {
	t := &Tree[T]{root: root, index: make(map[string]*Node[T])}
	t.Walk(func(n *Node[T], _ int) bool {
		if !n.root {
			t.index[n.id] = n
		}
		return true
	})
	return t
}

// Root returns the synthetic root node.
func (t *Tree[T]) Root() *Node[T] { return t.root }

// Lookup finds a node by id.
func (t *Tree[T]) Lookup(id string) (*Node[T], bool) {
	n, ok := t.index[id]
	return n, ok
}

// Len returns the number of distinct nodes in the tree, root excluded.
func (t *Tree[T]) Len() int { return len(t.index) }

// Walk visits nodes depth-first in pre-order, starting with the root at depth
// 0. Returning false from fn skips the node's children. A node shared by
// several parents is visited once per parent.
func (t *Tree[T]) Walk(fn func(n *Node[T], depth int) bool) {
	var visit func(n *Node[T], depth int)
	visit = func(n *Node[T], depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Leaves returns every distinct leaf in walk order.
func (t *Tree[T]) Leaves() []*Node[T] {
	seen := make(map[string]struct{})
	var leaves []*Node[T]
	t.Walk(func(n *Node[T], _ int) bool {
		if n.leaf {
			if _, ok := seen[n.id]; !ok {
				seen[n.id] = struct{}{}
				leaves = append(leaves, n)
			}
		}
		return true
	})
	return leaves
}
