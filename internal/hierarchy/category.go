package hierarchy

import (
	"fmt"
	"log/slog"
	"slices"
)

// Meta is the payload of CategoryTree nodes. ShortName is empty for
// categories.
type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
}

// CategoryTree builds a category/field tree from bare ids. Parents may be
// referenced before they are declared: a placeholder stands in for them until
// AddCategory fills in the name. A field may sit under several categories.
//
// Finalize keeps only what hangs off a top-level category (or the root itself)
// and drops every category with no field anywhere below it.
//
// A CategoryTree is not safe for concurrent use.
type CategoryTree struct {
	opts  options
	state state
	nodes map[string]*entry[Meta]
	root  *entry[Meta]
	trees map[bool]*Tree[Meta]
}

// NewCategoryTree returns an empty tree builder.
func NewCategoryTree(opts ...Option) *CategoryTree {
	return &CategoryTree{
		opts:  newOptions(opts),
		nodes: make(map[string]*entry[Meta]),
		root:  &entry[Meta]{root: true, declared: true},
		trees: make(map[bool]*Tree[Meta]),
	}
}

// AddCategory declares a category. If id was already referenced as a parent,
// its placeholder gets the name and keeps its children. An empty parentID puts
// the category directly under the root.
func (t *CategoryTree) AddCategory(id, name, parentID string) error {
	if t.state != building {
		return fmt.Errorf("%w: add category %q", ErrIllegalState, id)
	}
	n, exists := t.nodes[id]
	if exists && (n.leaf || n.declared) {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}
	if parentID != "" {
		if err := t.checkLink(parentID, id); err != nil {
			return err
		}
	}

	if !exists {
		n = &entry[Meta]{id: id}
		t.nodes[id] = n
	}
	n.name = name
	n.payload = Meta{ID: id, Name: name}
	n.declared = true

	if parentID == "" {
		t.root.children = append(t.root.children, n)
		return nil
	}
	link(t.fetch(parentID), n)
	return nil
}

// AddField adds a leaf under every category in parentIDs. Unknown parents get
// placeholders. A field with no parents sits directly under the root.
func (t *CategoryTree) AddField(id, name, shortName string, parentIDs []string) error {
	if t.state != building {
		return fmt.Errorf("%w: add field %q", ErrIllegalState, id)
	}
	if _, exists := t.nodes[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}

	var parents []string
	for _, pid := range parentIDs {
		if pid == "" || slices.Contains(parents, pid) {
			continue
		}
		if pid == id {
			return fmt.Errorf("%w: field %q lists itself as a category", ErrCyclicHierarchy, id)
		}
		if p, ok := t.nodes[pid]; ok && p.leaf {
			return fmt.Errorf("%w: category %q of field %q is already a field", ErrDuplicateNode, pid, id)
		}
		parents = append(parents, pid)
	}

	n := &entry[Meta]{
		id:       id,
		name:     name,
		payload:  Meta{ID: id, Name: name, ShortName: shortName},
		leaf:     true,
		declared: true,
	}
	t.nodes[id] = n
	if len(parents) == 0 {
		t.root.children = append(t.root.children, n)
		return nil
	}
	for _, pid := range parents {
		link(t.fetch(pid), n)
	}
	return nil
}

// checkLink reports whether childID may be placed under parentID.
func (t *CategoryTree) checkLink(parentID, childID string) error {
	if parentID == childID {
		return fmt.Errorf("%w: %q is its own parent", ErrCyclicHierarchy, childID)
	}
	p, ok := t.nodes[parentID]
	if !ok {
		return nil
	}
	if p.leaf {
		return fmt.Errorf("%w: parent %q of %q is already a field", ErrDuplicateNode, parentID, childID)
	}
	seen := make(map[*entry[Meta]]struct{})
	for cur := p; cur != nil; {
		if cur.id == childID {
			return fmt.Errorf("%w: %q is an ancestor of %q", ErrCyclicHierarchy, childID, parentID)
		}
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		cur = firstParent(cur)
	}
	return nil
}

// fetch returns the entry for id, creating a placeholder if needed.
func (t *CategoryTree) fetch(id string) *entry[Meta] {
	if n, ok := t.nodes[id]; ok {
		return n
	}
	n := &entry[Meta]{id: id, payload: Meta{ID: id}}
	t.nodes[id] = n
	return n
}

func link(parent, child *entry[Meta]) {
	if parent.hasChild(child) {
		return
	}
	parent.children = append(parent.children, child)
	child.parents = append(child.parents, parent)
}

func firstParent[T any](e *entry[T]) *entry[T] {
	if len(e.parents) == 0 {
		return nil
	}
	return e.parents[0]
}

// Len returns the number of ids known to the builder, placeholders included.
func (t *CategoryTree) Len() int { return len(t.nodes) }

// Has reports whether id was added or referenced as a parent.
func (t *CategoryTree) Has(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// PathTo returns the categories above id, outermost first. The node itself and
// the synthetic root are not part of the path. For a field under several
// categories the first one it was linked to is followed. Unknown ids yield an
// empty path.
func (t *CategoryTree) PathTo(id string) []Meta {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var path []Meta
	seen := map[*entry[Meta]]struct{}{n: {}}
	for p := firstParent(n); p != nil; p = firstParent(p) {
		if _, ok := seen[p]; ok {
			break
		}
		seen[p] = struct{}{}
		path = append(path, p.payload)
	}
	slices.Reverse(path)
	return path
}

// Finalize freezes the tree. Only nodes reachable from the root survive, and a
// category survives only if some field sits below it. Children keep insertion
// order unless sortByName is set.
//
// Under ExpectExactlyOneRoot, Finalize fails with ErrEmptyTree when nothing
// survives and with ErrRootCount when several top-level nodes do.
//
// The builder rejects further changes afterwards, even if Finalize fails.
// Calling it again with the same ordering returns the same tree.
func (t *CategoryTree) Finalize(sortByName bool) (*Tree[Meta], error) {
	t.state = finalized
	if tr, ok := t.trees[sortByName]; ok {
		return tr, nil
	}

	fruitful := make(map[*entry[Meta]]bool)
	var hasLeaf func(e *entry[Meta]) bool
	hasLeaf = func(e *entry[Meta]) bool {
		if v, ok := fruitful[e]; ok {
			return v
		}
		fruitful[e] = false
		v := e.leaf
		for _, c := range e.children {
			if hasLeaf(c) {
				v = true
			}
		}
		fruitful[e] = v
		return v
	}

	f := newFreezer(&t.opts, sortByName, hasLeaf)
	root := f.freeze(t.root)

	if t.opts.policy == ExpectExactlyOneRoot {
		switch len(root.children) {
		case 0:
			return nil, ErrEmptyTree
		case 1:
		default:
			return nil, fmt.Errorf("%w: want 1, got %d", ErrRootCount, len(root.children))
		}
	}

	tr := newTree(root)
	t.trees[sortByName] = tr
	slog.Debug("hierarchy: finalized category tree",
		"known", len(t.nodes), "kept", tr.Len(), "sorted", sortByName, "policy", t.opts.policy)
	return tr, nil
}
