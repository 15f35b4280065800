// Package catalog stores category and field declarations in SQLite and feeds
// them to the hierarchy builders.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrInvalidRecord reports a declaration the catalog refuses to store.
var ErrInvalidRecord = errors.New("invalid record")

// Category is a grouping node. An empty ParentID places it at the top level.
type Category struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	ParentID string `json:"parent,omitempty" yaml:"parent,omitempty" toml:"parent,omitempty"`
}

// Field is a leaf listed under one or more categories. The first category is
// its primary one.
type Field struct {
	ID         string   `json:"id" yaml:"id" toml:"id"`
	Name       string   `json:"name" yaml:"name" toml:"name"`
	ShortName  string   `json:"short_name,omitempty" yaml:"short_name,omitempty" toml:"short_name,omitempty"`
	Categories []string `json:"categories" yaml:"categories" toml:"categories"`
}

// Snapshot is the whole catalog in declaration order.
type Snapshot struct {
	Categories []Category `json:"categories" yaml:"categories" toml:"categories"`
	Fields     []Field    `json:"fields" yaml:"fields" toml:"fields"`
}

// Validate checks that every record has an id and that every field names at
// least one category.
func (s Snapshot) Validate() error {
	for i, c := range s.Categories {
		if c.ID == "" {
			return fmt.Errorf("%w: category #%d has no id", ErrInvalidRecord, i+1)
		}
	}
	for i, f := range s.Fields {
		if f.ID == "" {
			return fmt.Errorf("%w: field #%d has no id", ErrInvalidRecord, i+1)
		}
		if len(f.Categories) == 0 {
			return fmt.Errorf("%w: field %q has no category", ErrInvalidRecord, f.ID)
		}
	}
	return nil
}

// Config holds store initialization parameters.
type Config struct {
	DBPath string // path to SQLite file
}

// Store provides persistent catalog storage backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at the configured path.
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("catalog: DBPath must not be empty")
	}

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
