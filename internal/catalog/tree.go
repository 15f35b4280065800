package catalog

import (
	"fmt"
	"log/slog"

	"github.com/lthms/fieldtree/internal/hierarchy"
)

// CategoryTree feeds snap into an id-driven builder. Records are added in
// declaration order; the builder resolves forward references itself.
func CategoryTree(snap Snapshot, opts ...hierarchy.Option) (*hierarchy.CategoryTree, error) {
	t := hierarchy.NewCategoryTree(opts...)
	for _, c := range snap.Categories {
		if err := t.AddCategory(c.ID, c.Name, c.ParentID); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.ID, err)
		}
	}
	for _, f := range snap.Fields {
		if err := t.AddField(f.ID, f.Name, f.ShortName, f.Categories); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.ID, err)
		}
	}
	return t, nil
}

// Entry is a linked catalog record: each entry points at its parent entry,
// so a field reaches every ancestor category through Parent.
type Entry struct {
	id        string
	name      string
	shortName string
	field     bool
	parent    *Entry
}

func (e *Entry) ID() string        { return e.id }
func (e *Entry) Name() string      { return e.name }
func (e *Entry) ShortName() string { return e.shortName }
func (e *Entry) IsField() bool     { return e.field }

// Parent returns the enclosing category.
func (e *Entry) Parent() (*Entry, bool) {
	return e.parent, e.parent != nil
}

// Link turns snap into linked entries and returns the fields. Each field
// hangs off its primary (first) category. A category referenced but never
// declared is named after its id. Link does not check for cycles; the
// builder does.
func Link(snap Snapshot) []*Entry {
	cats := make(map[string]*Entry, len(snap.Categories))
	get := func(id string) *Entry {
		e, ok := cats[id]
		if !ok {
			e = &Entry{id: id, name: id}
			cats[id] = e
		}
		return e
	}
	for _, c := range snap.Categories {
		e := get(c.ID)
		e.name = c.Name
		if c.ParentID != "" {
			e.parent = get(c.ParentID)
		}
	}

	fields := make([]*Entry, 0, len(snap.Fields))
	for _, f := range snap.Fields {
		e := &Entry{id: f.ID, name: f.Name, shortName: f.ShortName, field: true}
		if len(f.Categories) > 0 && f.Categories[0] != "" {
			e.parent = get(f.Categories[0])
		}
		fields = append(fields, e)
	}
	return fields
}

// PrimaryTree builds a tree in which every field appears once, under its
// primary category. Categories without fields are never materialized.
func PrimaryTree(snap Snapshot, opts ...hierarchy.Option) (*hierarchy.Builder[*Entry], error) {
	b := hierarchy.NewBuilder[*Entry](opts...)
	for _, e := range Link(snap) {
		if err := b.Add(e); err != nil {
			return nil, fmt.Errorf("field %q: %w", e.id, err)
		}
	}
	slog.Debug("catalog: built primary tree", "fields", len(snap.Fields), "nodes", b.Len())
	return b, nil
}
