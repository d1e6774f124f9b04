// Package catalog stores symbol search snapshots in a SQLite database,
// one row per target, so that many documentation snapshots can live in a
// single file and be listed, replaced and removed by name.
package catalog
