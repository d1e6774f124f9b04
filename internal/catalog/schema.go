package catalog

import (
	"context"
	"database/sql"
)

// One row per snapshot and one row per (entry, target) pair. Entry labels
// repeat on each of their target rows; the entry ordinal keeps them apart.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    name           TEXT PRIMARY KEY,
    schema_version INTEGER NOT NULL,
    generator      TEXT NOT NULL DEFAULT '',
    source         TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT '',
    entry_count    INTEGER NOT NULL,
    imported_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS targets (
    snapshot  TEXT NOT NULL,
    entry     INTEGER NOT NULL,
    ordinal   INTEGER NOT NULL,
    label     TEXT NOT NULL,
    anchor    TEXT NOT NULL,
    scope     TEXT NOT NULL DEFAULT '',
    qualifier TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (snapshot, entry, ordinal)
);
`

// EnsureSchema creates the catalog tables in db if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, catalogSchema)
	return err
}
