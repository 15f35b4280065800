package hierarchy

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// state is the builder lifecycle. A builder starts in building and moves to
// finalized on the first Finalize call; it never goes back.
type state int

const (
	building state = iota
	finalized
)

// RootPolicy controls how many top-level categories CategoryTree.Finalize
// accepts once pruning is done.
type RootPolicy int

const (
	// AllowForest accepts any number of surviving top-level nodes, including
	// none.
	AllowForest RootPolicy = iota

	// ExpectExactlyOneRoot requires a single surviving top-level category.
	// Catalogs that hang everything off one "categories" node use this.
	ExpectExactlyOneRoot
)

func (p RootPolicy) String() string {
	switch p {
	case AllowForest:
		return "forest"
	case ExpectExactlyOneRoot:
		return "single"
	}
	return "unknown"
}

// ParseRootPolicy accepts the names produced by RootPolicy.String.
func ParseRootPolicy(s string) (RootPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forest":
		return AllowForest, true
	case "single":
		return ExpectExactlyOneRoot, true
	}
	return AllowForest, false
}

type options struct {
	policy   RootPolicy
	collator *collate.Collator
}

// Option configures a builder.
type Option func(*options)

// WithRootPolicy sets the root policy. Builder ignores it: its synthetic root
// may always hold any number of children.
func WithRootPolicy(p RootPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithCollation orders names by the collation rules of tag when sorting is
// requested. Without it names are compared byte-wise, so "Zinc" sorts before
// "apple".
func WithCollation(tag language.Tag) Option {
	return func(o *options) { o.collator = collate.New(tag) }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) compare(a, b string) int {
	if o.collator != nil {
		return o.collator.CompareString(a, b)
	}
	return strings.Compare(a, b)
}

// entry is the mutable node a builder owns until Finalize.
type entry[T any] struct {
	id       string
	name     string
	payload  T
	leaf     bool
	root     bool
	declared bool // false while the entry is a forward-reference placeholder
	parents  []*entry[T]
	children []*entry[T]
}

func (e *entry[T]) hasChild(c *entry[T]) bool {
	return slices.Contains(e.children, c)
}

// freezer converts entries into immutable nodes. Each entry is converted at
// most once, so an entry reachable through several parents becomes one shared
// Node.
type freezer[T any] struct {
	compare func(a, b string) int // nil keeps insertion order
	keep    func(*entry[T]) bool  // nil keeps every child
	memo    map[*entry[T]]*Node[T]
}

func (f *freezer[T]) freeze(e *entry[T]) *Node[T] {
	if n, ok := f.memo[e]; ok {
		return n
	}
	n := &Node[T]{
		id:      e.id,
		name:    e.name,
		payload: e.payload,
		leaf:    e.leaf,
		root:    e.root,
	}
	for _, c := range e.children {
		if f.keep != nil && !f.keep(c) {
			continue
		}
		n.children = append(n.children, f.freeze(c))
	}
	if f.compare != nil {
		slices.SortStableFunc(n.children, func(a, b *Node[T]) int {
			return f.compare(a.name, b.name)
		})
	}
	f.memo[e] = n
	return n
}

func newFreezer[T any](o *options, sortByName bool, keep func(*entry[T]) bool) *freezer[T] {
	f := &freezer[T]{keep: keep, memo: make(map[*entry[T]]*Node[T])}
	if sortByName {
		f.compare = o.compare
	}
	return f
}
