package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// ErrNotFound is returned when the catalog holds no snapshot of the requested name.
var ErrNotFound = errors.New("snapshot not found in catalog")

// Info summarises one stored snapshot without loading its entries.
type Info struct {
	symindex.Manifest
	Entries    int       `json:"entries"`
	ImportedAt time.Time `json:"imported_at"`
}

// Catalog persists many snapshots in one SQLite database.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path. Use ":memory:" for a
// throwaway catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// A ":memory:" database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure catalog: %w", err)
	}
	c, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an already open database, creating the catalog tables if needed.
func New(ctx context.Context, db *sql.DB) (*Catalog, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog: db is nil")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores store under its manifest name, replacing any previous snapshot
// of that name. The replacement is a single transaction: readers see either
// the old snapshot or the new one.
func (c *Catalog) Put(ctx context.Context, store *symindex.Store) error {
	m := store.Manifest()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE snapshot = ?`, m.Name); err != nil {
		return fmt.Errorf("failed to clear targets of %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, m.Name); err != nil {
		return fmt.Errorf("failed to clear snapshot %s: %w", m.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots(name, schema_version, generator, source, created_at, entry_count, imported_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.SchemaVersion, m.Generator, m.Source, m.CreatedAt, store.Size(),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", m.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO targets(snapshot, entry, ordinal, label, anchor, scope, qualifier) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range store.All() {
		for j, t := range e.Targets {
			if _, err := stmt.ExecContext(ctx, m.Name, i, j, e.Label, t.Anchor, t.Scope, t.Qualifier); err != nil {
				return fmt.Errorf("failed to insert entry %d of %s: %w", i, m.Name, err)
			}
		}
	}

	return tx.Commit()
}

// Stat returns the stored manifest of name.
func (c *Catalog) Stat(ctx context.Context, name string) (Info, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, schema_version, generator, source, created_at, entry_count, imported_at
		 FROM snapshots WHERE name = ?`, name)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return info, err
}

// Get rebuilds the snapshot stored under name.
func (c *Catalog) Get(ctx context.Context, name string) (*symindex.Store, error) {
	info, err := c.Stat(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT entry, label, anchor, scope, qualifier FROM targets
		 WHERE snapshot = ? ORDER BY entry, ordinal`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]symindex.Entry, 0, info.Entries)
	for rows.Next() {
		var (
			entry int
			label string
			t     symindex.Target
		)
		if err := rows.Scan(&entry, &label, &t.Anchor, &t.Scope, &t.Qualifier); err != nil {
			return nil, err
		}
		switch {
		case entry == len(entries):
			entries = append(entries, symindex.Entry{Label: label})
		case entry != len(entries)-1:
			return nil, fmt.Errorf("snapshot %s: entry %d out of sequence: %w", name, entry, symindex.ErrMalformedIndex)
		}
		entries[entry].Targets = append(entries[entry].Targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) != info.Entries {
		return nil, fmt.Errorf("snapshot %s: catalog holds %d entries, manifest says %d: %w",
			name, len(entries), info.Entries, symindex.ErrMalformedIndex)
	}

	return symindex.New(info.Manifest, entries)
}

// List returns every stored snapshot ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Info, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, schema_version, generator, source, created_at, entry_count, imported_at
		 FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the snapshot stored under name.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE snapshot = ?`, name); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(s scanner) (Info, error) {
	var (
		info     Info
		imported string
	)
	err := s.Scan(&info.Name, &info.SchemaVersion, &info.Generator, &info.Source, &info.CreatedAt,
		&info.Entries, &imported)
	if err != nil {
		return Info{}, err
	}
	if info.ImportedAt, err = time.Parse(time.RFC3339Nano, imported); err != nil {
		return Info{}, fmt.Errorf("snapshot %s: bad import time %q: %w", info.Name, imported, err)
	}
	return info, nil
}
