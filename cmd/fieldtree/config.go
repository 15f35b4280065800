package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/lthms/fieldtree/internal/hierarchy"
)

// UserConfig holds user-level configuration loaded from
// ~/.config/fieldtree/config.toml.
type UserConfig struct {
	Catalog CatalogConfig `toml:"catalog"`
	Tree    TreeConfig    `toml:"tree"`
}

// CatalogConfig locates the catalog database.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// TreeConfig holds the defaults used when building a tree.
type TreeConfig struct {
	Sort       bool   `toml:"sort"`
	Locale     string `toml:"locale"`
	RootPolicy string `toml:"root_policy"`
}

// stateDir returns ~/.local/state/fieldtree.
func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "fieldtree"), nil
}

// loadUserConfig reads ~/.config/fieldtree/config.toml and returns the parsed
// config with defaults applied. If the file does not exist, defaults are
// returned with no error.
func loadUserConfig() (*UserConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home dir: %w", err)
	}
	return loadUserConfigFrom(filepath.Join(home, ".config", "fieldtree", "config.toml"))
}

func loadUserConfigFrom(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Re-apply defaults for empty fields
	if cfg.Catalog.Path == "" {
		dir, err := stateDir()
		if err != nil {
			return nil, err
		}
		cfg.Catalog.Path = filepath.Join(dir, "catalog.db")
	}
	if cfg.Tree.RootPolicy == "" {
		cfg.Tree.RootPolicy = hierarchy.AllowForest.String()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *UserConfig) validate() error {
	if _, ok := hierarchy.ParseRootPolicy(c.Tree.RootPolicy); !ok {
		return fmt.Errorf("tree.root_policy: unknown policy %q (want forest or single)", c.Tree.RootPolicy)
	}
	if c.Tree.Locale != "" {
		if _, err := language.Parse(c.Tree.Locale); err != nil {
			return fmt.Errorf("tree.locale: %w", err)
		}
	}
	return nil
}
