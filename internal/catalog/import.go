package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/gcfg/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const parseConcurrency = 8

// Format is a catalog file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatGcfg Format = "gcfg"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".ini", ".gcfg", ".cfg":
		return FormatGcfg, nil
	}
	return "", fmt.Errorf("unsupported catalog file %q", path)
}

// ParseFile reads and validates one catalog file.
func ParseFile(path string) (Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := Parse(format, data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes data in the given format and validates the result.
func Parse(format Format, data []byte) (Snapshot, error) {
	var snap Snapshot
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	case FormatTOML:
		err = toml.Unmarshal(data, &snap)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&snap)
	case FormatGcfg:
		snap, err = parseGcfg(data)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse %s: %w", format, err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// gcfgFile mirrors the git-config layout:
//
//	[category "health"]
//	    name = Health
//	[field "malaria"]
//	    name = Malaria Cases
//	    short-name = Malaria
//	    category = health
//	    category = diseases
type gcfgFile struct {
	Category map[string]*struct {
		Name   string
		Parent string
	}
	Field map[string]*struct {
		Name       string
		Short_Name string
		Category   []string
	}
}

// parseGcfg decodes data into a Snapshot. gcfg hands subsections back as
// maps, so a second callback pass recovers the order they were written in.
func parseGcfg(data []byte) (Snapshot, error) {
	var f gcfgFile
	if err := gcfg.ReadInto(&f, bytes.NewReader(data)); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	var seen []string
	err := gcfg.ReadWithCallback(bytes.NewReader(data), func(section, sub, key, _ string, _ bool) error {
		if key != "" || sub == "" {
			return nil
		}
		tag := strings.ToLower(section) + "\x00" + sub
		if slices.Contains(seen, tag) {
			return nil
		}
		seen = append(seen, tag)

		switch strings.ToLower(section) {
		case "category":
			if c, ok := f.Category[sub]; ok {
				snap.Categories = append(snap.Categories, Category{ID: sub, Name: c.Name, ParentID: c.Parent})
			}
		case "field":
			if v, ok := f.Field[sub]; ok {
				snap.Fields = append(snap.Fields, Field{
					ID:         sub,
					Name:       v.Name,
					ShortName:  v.Short_Name,
					Categories: v.Category,
				})
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ImportFiles parses paths concurrently and then applies them to the store
// one by one, in argument order. Nothing is written if any file fails to
// parse.
func ImportFiles(ctx context.Context, s *Store, paths []string) (Snapshot, error) {
	parsed := make([]Snapshot, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := ParseFile(p)
			if err != nil {
				return err
			}
			slog.Debug("catalog: parsed file", "path", p,
				"categories", len(snap.Categories), "fields", len(snap.Fields))
			parsed[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	var total Snapshot
	for i, snap := range parsed {
		if err := s.Apply(ctx, snap); err != nil {
			return total, fmt.Errorf("apply %s: %w", paths[i], err)
		}
		total.Categories = append(total.Categories, snap.Categories...)
		total.Fields = append(total.Fields, snap.Fields...)
	}
	return total, nil
}
