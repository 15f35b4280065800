package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lthms/fieldtree/internal/catalog"
	"github.com/lthms/fieldtree/internal/hierarchy"
)

// viewNode is the format-neutral copy of a finalized tree that the printers,
// the browser, and the servers share. It is never modified after buildView.
type viewNode struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name,omitempty"`
	ShortName string      `json:"short_name,omitempty"`
	Field     bool        `json:"field,omitempty"`
	Children  []*viewNode `json:"children,omitempty"`
}

// label is the text shown for n in a rendered tree.
func (n *viewNode) label() string {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	if n.Field && n.ShortName != "" && n.ShortName != name {
		return fmt.Sprintf("%s (%s)", name, n.ShortName)
	}
	return name
}

func toView[T any](n *hierarchy.Node[T], shortName func(T) string) *viewNode {
	v := &viewNode{ID: n.ID(), Name: n.Name(), Field: n.IsLeaf()}
	if !n.IsRoot() && n.IsLeaf() {
		v.ShortName = shortName(n.Payload())
	}
	for _, c := range n.Children() {
		v.Children = append(v.Children, toView(c, shortName))
	}
	return v
}

// buildView finalizes snap into a tree. The id-driven builder is the default;
// primary places every field under its first category only.
func buildView(snap catalog.Snapshot, opts []hierarchy.Option, sortByName, primary bool) (*viewNode, error) {
	if primary {
		b, err := catalog.PrimaryTree(snap, opts...)
		if err != nil {
			return nil, err
		}
		tr := b.Finalize(sortByName)
		return toView(tr.Root(), (*catalog.Entry).ShortName), nil
	}

	ct, err := catalog.CategoryTree(snap, opts...)
	if err != nil {
		return nil, err
	}
	tr, err := ct.Finalize(sortByName)
	if err != nil {
		return nil, err
	}
	return toView(tr.Root(), func(m hierarchy.Meta) string { return m.ShortName }), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
