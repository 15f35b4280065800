package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const yamlCatalog = `
categories:
  - id: health
    name: Health
  - id: malaria
    name: Malaria
    parent: health
fields:
  - id: cases
    name: Malaria Cases
    short_name: Cases
    categories: [malaria]
`

const tomlCatalog = `
[[categories]]
id = "health"
name = "Health"

[[categories]]
id = "malaria"
name = "Malaria"
parent = "health"

[[fields]]
id = "cases"
name = "Malaria Cases"
short_name = "Cases"
categories = ["malaria"]
`

const jsonCatalog = `{
  "categories": [
    {"id": "health", "name": "Health"},
    {"id": "malaria", "name": "Malaria", "parent": "health"}
  ],
  "fields": [
    {"id": "cases", "name": "Malaria Cases", "short_name": "Cases", "categories": ["malaria"]}
  ]
}`

const gcfgCatalog = `
[category "health"]
	name = Health
[field "cases"]
	name = Malaria Cases
	short-name = Cases
	category = malaria
[category "malaria"]
	name = Malaria
	parent = health
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseFormats(t *testing.T) {
	want := Snapshot{
		Categories: []Category{
			{ID: "health", Name: "Health"},
			{ID: "malaria", Name: "Malaria", ParentID: "health"},
		},
		Fields: []Field{
			{ID: "cases", Name: "Malaria Cases", ShortName: "Cases", Categories: []string{"malaria"}},
		},
	}

	tests := []struct {
		file    string
		content string
	}{
		{"c.yaml", yamlCatalog},
		{"c.yml", yamlCatalog},
		{"c.toml", tomlCatalog},
		{"c.json", jsonCatalog},
		{"c.ini", gcfgCatalog},
		{"c.gcfg", gcfgCatalog},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := ParseFile(writeFile(t, dir, tt.file, tt.content))
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}
			if !slices.Equal(got.Categories, want.Categories) {
				t.Errorf("categories = %+v, want %+v", got.Categories, want.Categories)
			}
			if len(got.Fields) != 1 {
				t.Fatalf("got %d fields, want 1", len(got.Fields))
			}
			f := got.Fields[0]
			if f.ID != "cases" || f.Name != "Malaria Cases" || f.ShortName != "Cases" ||
				!slices.Equal(f.Categories, []string{"malaria"}) {
				t.Errorf("field = %+v", f)
			}
		})
	}
}

func TestParseGcfgKeepsOrder(t *testing.T) {
	src := `
[category "zeta"]
	name = Zeta
[category "alpha"]
	name = Alpha
[category "mid"]
	name = Mid
	parent = zeta
[field "f"]
	name = F
	category = alpha
	category = mid
`
	snap, err := Parse(FormatGcfg, []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var ids []string
	for _, c := range snap.Categories {
		ids = append(ids, c.ID)
	}
	if want := []string{"zeta", "alpha", "mid"}; !slices.Equal(ids, want) {
		t.Errorf("category order = %v, want %v", ids, want)
	}
	if want := []string{"alpha", "mid"}; !slices.Equal(snap.Fields[0].Categories, want) {
		t.Errorf("field categories = %v, want %v", snap.Fields[0].Categories, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		content string
		invalid bool
	}{
		{"yaml syntax", FormatYAML, "categories: [", false},
		{"json unknown key", FormatJSON, `{"cats": []}`, false},
		{"gcfg unknown variable", FormatGcfg, "[category \"a\"]\n\tcolour = red\n", false},
		{"field without category", FormatYAML, "fields:\n  - id: f\n    name: F\n", true},
		{"category without id", FormatTOML, "[[categories]]\nname = \"x\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.format, []byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidRecord); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidRecord) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a/b.YAML", FormatYAML, true},
		{"x.toml", FormatTOML, true},
		{"x.cfg", FormatGcfg, true},
		{"x.json", FormatJSON, true},
		{"x.csv", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FormatOf(%q) = %q, %v; want %q, ok=%v", tt.path, got, err, tt.want, tt.ok)
		}
	}
}

func TestImportFiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "base.yaml", yamlCatalog),
		writeFile(t, dir, "extra.ini", "[category \"demo\"]\n\tname = Demographics\n[field \"pop\"]\n\tname = Population\n\tcategory = demo\n"),
	}
	total, err := ImportFiles(ctx, s, paths)
	if err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if len(total.Categories) != 3 || len(total.Fields) != 2 {
		t.Errorf("imported %d categories, %d fields; want 3, 2", len(total.Categories), len(total.Fields))
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, c := range snap.Categories {
		ids = append(ids, c.ID)
	}
	if want := []string{"health", "malaria", "demo"}; !slices.Equal(ids, want) {
		t.Errorf("stored categories = %v, want %v", ids, want)
	}
}

func TestImportFilesAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "good.yaml", yamlCatalog),
		writeFile(t, dir, "bad.json", "{"),
	}
	_, err := ImportFiles(ctx, s, paths)
	if err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Fatalf("err = %v, want a parse error naming bad.json", err)
	}

	cats, fields, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cats != 0 || fields != 0 {
		t.Errorf("Counts = %d, %d after failed import; want 0, 0", cats, fields)
	}
}
