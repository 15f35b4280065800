package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lthms/fieldtree/internal/catalog"
	"github.com/lthms/fieldtree/internal/hierarchy"
)

// ImportCmd loads catalog files into the catalog database.
type ImportCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Catalog files to import."`
}

func (cmd *ImportCmd) Run(ctx context.Context, cfg *UserConfig) error {
	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	total, err := catalog.ImportFiles(ctx, s, cmd.Files)
	if err != nil {
		return err
	}
	slog.Info("imported catalog", "files", len(cmd.Files),
		"categories", len(total.Categories), "fields", len(total.Fields), "db", cfg.Catalog.Path)
	return nil
}

// AddCategoryCmd declares a single category.
type AddCategoryCmd struct {
	ID     string `arg:"" help:"Category id."`
	Name   string `arg:"" help:"Display name."`
	Parent string `short:"p" help:"Parent category id (top level if empty)."`
}

func (cmd *AddCategoryCmd) Run(ctx context.Context, cfg *UserConfig) error {
	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.PutCategory(ctx, catalog.Category{ID: cmd.ID, Name: cmd.Name, ParentID: cmd.Parent})
}

// AddFieldCmd declares a single field.
type AddFieldCmd struct {
	ID         string   `arg:"" help:"Field id."`
	Name       string   `arg:"" help:"Display name."`
	Short      string   `short:"s" help:"Short name."`
	Categories []string `short:"c" name:"category" required:"" help:"Category id; repeat for several, the first is primary."`
}

func (cmd *AddFieldCmd) Run(ctx context.Context, cfg *UserConfig) error {
	s, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.PutField(ctx, catalog.Field{
		ID:         cmd.ID,
		Name:       cmd.Name,
		ShortName:  cmd.Short,
		Categories: cmd.Categories,
	})
}

// ShowCmd prints the finalized tree.
type ShowCmd struct {
	Tree treeFlags `embed:""`
}

func (cmd *ShowCmd) Run(ctx context.Context, cfg *UserConfig) error {
	root, err := loadView(ctx, cfg, cmd.Tree)
	if err != nil {
		return err
	}
	return printTree(os.Stdout, root, terminalWidth())
}

func printTree(w io.Writer, root *viewNode, width int) error {
	lines := renderTree(root, width)
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "(no fields)")
		return err
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func loadView(ctx context.Context, cfg *UserConfig, flags treeFlags) (*viewNode, error) {
	opts, sortByName, err := flags.resolve(cfg)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return buildView(snap, opts, sortByName, flags.Primary)
}

// PathCmd prints the categories above an id.
type PathCmd struct {
	ID        string `arg:"" help:"Field or category id."`
	Separator string `default:" > " help:"Separator between categories."`
}

func (cmd *PathCmd) Run(ctx context.Context, cfg *UserConfig) error {
	snap, err := loadSnapshot(ctx, cfg)
	if err != nil {
		return err
	}
	ct, err := catalog.CategoryTree(snap)
	if err != nil {
		return err
	}
	if !ct.Has(cmd.ID) {
		return fmt.Errorf("unknown id %q", cmd.ID)
	}
	fmt.Println(formatPath(ct.PathTo(cmd.ID), cmd.Separator))
	return nil
}

func formatPath(path []hierarchy.Meta, sep string) string {
	names := make([]string, len(path))
	for i, m := range path {
		names[i] = m.Name
		if names[i] == "" {
			names[i] = m.ID
		}
	}
	return strings.Join(names, sep)
}

// ExportCmd writes the finalized tree as JSON.
type ExportCmd struct {
	Tree   treeFlags `embed:""`
	Output string    `short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (cmd *ExportCmd) Run(ctx context.Context, cfg *UserConfig) error {
	root, err := loadView(ctx, cfg, cmd.Tree)
	if err != nil {
		return err
	}
	if cmd.Output == "" {
		return writeJSON(os.Stdout, root)
	}

	f, err := os.Create(cmd.Output)
	if err != nil {
		return err
	}
	if err := writeJSON(f, root); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
