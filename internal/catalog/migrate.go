package catalog

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		// seq keeps declaration order across upserts
		`CREATE TABLE IF NOT EXISTS categories (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			id        TEXT NOT NULL UNIQUE,
			name      TEXT NOT NULL DEFAULT '',
			parent_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS fields (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			short_name TEXT NOT NULL DEFAULT ''
		)`,

		// Categories may be referenced before they are declared, so
		// category_id is not a foreign key.
		`CREATE TABLE IF NOT EXISTS field_categories (
			field_id    TEXT NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
			category_id TEXT NOT NULL,
			pos         INTEGER NOT NULL,
			PRIMARY KEY (field_id, category_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_field_categories_category ON field_categories(category_id)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(s, 60), err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
