package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tallykeep/tallykeep/pkg/catalog"
	"github.com/tallykeep/tallykeep/pkg/kit"
)

// SQLite implements CategoryStore and KitStore on an embedded database,
// for edge deployments that keep catalog metadata local.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open handle and creates the schema if missing.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS kit_edges (
		kit_id TEXT NOT NULL,
		component_id TEXT NOT NULL,
		PRIMARY KEY (kit_id, component_id)
	);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("sqlite migrate failed: %w", err)
	}
	return nil
}

// PutCategory inserts or replaces a category record.
func (s *SQLite) PutCategory(ctx context.Context, c catalog.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id`,
		c.ID, c.Name, c.ParentID)
	if err != nil {
		return fmt.Errorf("failed to put category %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category rows: %w", err)
	}
	return out, nil
}

func (s *SQLite) Parents(ctx context.Context) (map[string]string, error) {
	categories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	parents := make(map[string]string, len(categories))
	for _, c := range categories {
		parents[c.ID] = c.ParentID
	}
	return parents, nil
}

func (s *SQLite) SetParent(ctx context.Context, categoryID, parentID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET parent_id = ? WHERE id = ?`, parentID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to set parent of %s: %w", categoryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set parent of %s: %w", categoryID, err)
	}
	if n == 0 {
		return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Edges(ctx context.Context) ([]kit.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kit_id, component_id FROM kit_edges ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list kit edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kit.Edge
	for rows.Next() {
		var e kit.Edge
		if err := rows.Scan(&e.KitID, &e.ComponentID); err != nil {
			return nil, fmt.Errorf("failed to scan kit edge: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kit edge rows: %w", err)
	}
	return out, nil
}

func (s *SQLite) AddComponent(ctx context.Context, kitID, componentID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kit_edges (kit_id, component_id) VALUES (?, ?)`, kitID, componentID)
	if err != nil {
		return fmt.Errorf("failed to add component %s to kit %s: %w", componentID, kitID, err)
	}
	return nil
}
