package hierarchy

import (
	"fmt"
	"log/slog"
)

// Item is a payload that knows its own parent category. Parent reports false
// for top-level items.
type Item[T any] interface {
	ID() string
	Name() string
	Parent() (T, bool)
}

// Builder places items under their parent categories, materializing each
// missing ancestor from the item's Parent chain. Items added through Add or
// AddUnder are leaves; ancestors created along the way are categories.
//
// A Builder is not safe for concurrent use.
type Builder[T Item[T]] struct {
	opts  options
	state state
	nodes map[string]*entry[T]
	root  *entry[T]
	trees map[bool]*Tree[T]
}

// NewBuilder returns an empty builder.
func NewBuilder[T Item[T]](opts ...Option) *Builder[T] {
	return &Builder[T]{
		opts:  newOptions(opts),
		nodes: make(map[string]*entry[T]),
		root:  &entry[T]{root: true, declared: true},
		trees: make(map[bool]*Tree[T]),
	}
}

// Add inserts item as a leaf below the category returned by item.Parent().
func (b *Builder[T]) Add(item T) error {
	parent, ok := item.Parent()
	return b.add(item, parent, ok)
}

// AddUnder inserts item as a leaf below parent, ignoring item.Parent().
// Ancestors above parent are still resolved through parent.Parent().
func (b *Builder[T]) AddUnder(item T, parent T) error {
	return b.add(item, parent, true)
}

func (b *Builder[T]) add(item T, parent T, hasParent bool) error {
	id := item.ID()
	if b.state != building {
		return fmt.Errorf("%w: add %q", ErrIllegalState, id)
	}
	if _, ok := b.nodes[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}

	// Resolve the whole chain before touching the index so a failure leaves
	// the builder as it was.
	var missing []T
	seen := map[string]struct{}{id: {}}
	anchor := b.root
	for hasParent {
		pid := parent.ID()
		if _, ok := seen[pid]; ok {
			return fmt.Errorf("%w: %q appears twice above %q", ErrCyclicHierarchy, pid, id)
		}
		if known, ok := b.nodes[pid]; ok {
			if known.leaf {
				return fmt.Errorf("%w: parent %q of %q is already a leaf", ErrDuplicateNode, pid, id)
			}
			anchor = known
			break
		}
		seen[pid] = struct{}{}
		missing = append(missing, parent)
		parent, hasParent = parent.Parent()
	}

	child := &entry[T]{id: id, name: item.Name(), payload: item, leaf: true, declared: true}
	b.nodes[id] = child
	for _, p := range missing {
		n := &entry[T]{
			id:       p.ID(),
			name:     p.Name(),
			payload:  p,
			declared: true,
			children: []*entry[T]{child},
		}
		child.parents = []*entry[T]{n}
		b.nodes[n.id] = n
		child = n
	}
	if !anchor.root {
		child.parents = []*entry[T]{anchor}
	}
	anchor.children = append(anchor.children, child)

	if len(missing) > 0 {
		slog.Debug("hierarchy: materialized ancestors", "item", id, "count", len(missing))
	}
	return nil
}

// Len returns the number of nodes inserted so far, including materialized
// ancestors.
func (b *Builder[T]) Len() int { return len(b.nodes) }

// Finalize freezes every node reachable from the synthetic root and returns
// the tree. Children keep insertion order unless sortByName is set. The
// builder rejects further Add calls afterwards; calling Finalize again with
// the same ordering returns the same tree.
func (b *Builder[T]) Finalize(sortByName bool) *Tree[T] {
	b.state = finalized
	if t, ok := b.trees[sortByName]; ok {
		return t
	}
	f := newFreezer[T](&b.opts, sortByName, nil)
	t := newTree(f.freeze(b.root))
	b.trees[sortByName] = t
	slog.Debug("hierarchy: finalized item tree", "nodes", t.Len(), "sorted", sortByName)
	return t
}
