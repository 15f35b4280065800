package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lthms/fieldtree/internal/hierarchy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadUserConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadUserConfigFrom(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("loadUserConfigFrom: %v", err)
	}
	if want := filepath.Join(home, ".local", "state", "fieldtree", "catalog.db"); cfg.Catalog.Path != want {
		t.Errorf("Catalog.Path = %q, want %q", cfg.Catalog.Path, want)
	}
	if cfg.Tree.RootPolicy != "forest" {
		t.Errorf("Tree.RootPolicy = %q, want forest", cfg.Tree.RootPolicy)
	}
	if cfg.Tree.Sort || cfg.Tree.Locale != "" {
		t.Errorf("Tree = %+v, want zero sort and locale", cfg.Tree)
	}
}

func TestLoadUserConfigFile(t *testing.T) {
	path := writeConfig(t, `
[catalog]
path = "/data/catalog.db"

[tree]
sort = true
locale = "fr"
root_policy = "single"
`)
	cfg, err := loadUserConfigFrom(path)
	if err != nil {
		t.Fatalf("loadUserConfigFrom: %v", err)
	}
	if cfg.Catalog.Path != "/data/catalog.db" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
	if !cfg.Tree.Sort || cfg.Tree.Locale != "fr" || cfg.Tree.RootPolicy != "single" {
		t.Errorf("Tree = %+v", cfg.Tree)
	}
}

func TestLoadUserConfigEmptyFieldsDefaulted(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "[catalog]\npath = \"\"\n[tree]\nroot_policy = \"\"\n")
	cfg, err := loadUserConfigFrom(path)
	if err != nil {
		t.Fatalf("loadUserConfigFrom: %v", err)
	}
	if cfg.Catalog.Path == "" || cfg.Tree.RootPolicy != "forest" {
		t.Errorf("empty fields not defaulted: %+v", cfg)
	}
}

func TestLoadUserConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[tree\n", "parse"},
		{"bad policy", "[tree]\nroot_policy = \"many\"\n", "root_policy"},
		{"bad locale", "[tree]\nlocale = \"not a locale!\"\n", "tree.locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := loadUserConfigFrom(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestTreeFlagsResolve(t *testing.T) {
	cfg := &UserConfig{Tree: TreeConfig{RootPolicy: "forest", Locale: "en"}}

	opts, sorted, err := treeFlags{}.resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sorted {
		t.Error("sorted = true without --sort or tree.sort")
	}
	if len(opts) != 2 {
		t.Errorf("got %d options, want policy and collation", len(opts))
	}

	_, sorted, err = treeFlags{Sort: true, SingleRoot: true, Locale: "sv"}.resolve(cfg)
	if err != nil || !sorted {
		t.Errorf("resolve with flags: sorted=%v err=%v", sorted, err)
	}

	if _, _, err := (treeFlags{Locale: "??"}).resolve(cfg); err == nil {
		t.Error("expected error for invalid --locale")
	}
}

func TestTreeFlagsSingleRoot(t *testing.T) {
	cfg := &UserConfig{Tree: TreeConfig{RootPolicy: "forest"}}
	opts, _, err := treeFlags{SingleRoot: true}.resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ct := hierarchy.NewCategoryTree(opts...)
	if _, err := ct.Finalize(false); err == nil {
		t.Error("--single-root did not reject an empty tree")
	}
}
