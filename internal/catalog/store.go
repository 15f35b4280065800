package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// execer is the part of *sql.DB and *sql.Tx the writers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutCategory inserts c, or renames and re-parents an existing category with
// the same id. The declaration position of an existing category is kept.
func (s *Store) PutCategory(ctx context.Context, c Category) error {
	if c.ID == "" {
		return fmt.Errorf("%w: category has no id", ErrInvalidRecord)
	}
	return putCategory(ctx, s.db, c)
}

// PutField inserts or replaces f and its category links.
func (s *Store) PutField(ctx context.Context, f Field) error {
	if f.ID == "" {
		return fmt.Errorf("%w: field has no id", ErrInvalidRecord)
	}
	if len(f.Categories) == 0 {
		return fmt.Errorf("%w: field %q has no category", ErrInvalidRecord, f.ID)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putField(ctx, tx, f)
	})
}

// Apply writes every record of snap in a single transaction.
func (s *Store) Apply(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range snap.Categories {
			if err := putCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, f := range snap.Fields {
			if err := putField(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("catalog: applied snapshot", "categories", len(snap.Categories), "fields", len(snap.Fields))
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func putCategory(ctx context.Context, db execer, c Category) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id`,
		c.ID, c.Name, c.ParentID,
	)
	if err != nil {
		return fmt.Errorf("put category %q: %w", c.ID, err)
	}
	return nil
}

func putField(ctx context.Context, db execer, f Field) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO fields (id, name, short_name) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, short_name = excluded.short_name`,
		f.ID, f.Name, f.ShortName,
	)
	if err != nil {
		return fmt.Errorf("put field %q: %w", f.ID, err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM field_categories WHERE field_id = ?`, f.ID); err != nil {
		return fmt.Errorf("clear categories of %q: %w", f.ID, err)
	}
	var seen []string
	for _, cid := range f.Categories {
		if cid == "" || slices.Contains(seen, cid) {
			continue
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO field_categories (field_id, category_id, pos) VALUES (?, ?, ?)`,
			f.ID, cid, len(seen),
		)
		if err != nil {
			return fmt.Errorf("link %q to %q: %w", f.ID, cid, err)
		}
		seen = append(seen, cid)
	}
	return nil
}

// Snapshot reads the whole catalog in declaration order.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id FROM categories ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate categories: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, name, short_name FROM fields ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("query fields: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.ID, &f.Name, &f.ShortName); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan field: %w", err)
		}
		index[f.ID] = len(snap.Fields)
		snap.Fields = append(snap.Fields, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate fields: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT field_id, category_id FROM field_categories ORDER BY field_id, pos`)
	if err != nil {
		return snap, fmt.Errorf("query field categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fid, cid string
		if err := rows.Scan(&fid, &cid); err != nil {
			return snap, fmt.Errorf("scan field category: %w", err)
		}
		if i, ok := index[fid]; ok {
			snap.Fields[i].Categories = append(snap.Fields[i].Categories, cid)
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate field categories: %w", err)
	}
	return snap, nil
}

// Counts returns the number of stored categories and fields.
func (s *Store) Counts(ctx context.Context) (categories, fields int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM categories), (SELECT COUNT(*) FROM fields)`,
	).Scan(&categories, &fields)
	if err != nil {
		return 0, 0, fmt.Errorf("count records: %w", err)
	}
	return categories, fields, nil
}
