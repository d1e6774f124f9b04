package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

func openMemory(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), ":memory:")
	require.NoError(t, err, "Open(:memory:) failed")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testStore(t *testing.T, name string, labels ...string) *symindex.Store {
	t.Helper()
	entries := make([]symindex.Entry, 0, len(labels))
	for i, label := range labels {
		entries = append(entries, symindex.Entry{Label: label, Targets: []symindex.Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1" + label + ".html", Scope: "cisco::efm_sdk"},
			{Anchor: "classcisco_1_1efm__sdk_1_1" + label + ".html#a" + string(rune('0'+i)), Scope: "cisco::efm_sdk::" + label, Qualifier: "(int x) const"},
		}})
	}
	store, err := symindex.New(symindex.Manifest{
		SchemaVersion: symindex.SnapshotSchemaVersion,
		Name:          name,
		Generator:     "doxygen-searchdata",
		Source:        "docs/search#all",
		CreatedAt:     "2024-03-01T10:00:00Z",
	}, entries)
	require.NoError(t, err)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	// Duplicate labels must survive as separate entries.
	store := testStore(t, "efm-sdk", "Link", "LinkOptions", "Link", "make_node")
	require.NoError(t, c.Put(ctx, store))

	got, err := c.Get(ctx, "efm-sdk")
	require.NoError(t, err)
	assert.True(t, store.Equal(got), "catalog round trip changed the snapshot")
	assert.Equal(t, store.Manifest(), got.Manifest())
	assert.Equal(t, 4, got.Size())
}

func TestPutReplaces(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, testStore(t, "efm-sdk", "Link", "LinkOptions", "Requester")))
	require.NoError(t, c.Put(ctx, testStore(t, "efm-sdk", "Responder")))

	got, err := c.Get(ctx, "efm-sdk")
	require.NoError(t, err)
	require.Equal(t, 1, got.Size())
	assert.Equal(t, "Responder", got.Entry(0).Label)

	infos, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].Entries)
}

func TestListAndStat(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	infos, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	before := time.Now().Add(-time.Second)
	require.NoError(t, c.Put(ctx, testStore(t, "zeta", "Link")))
	require.NoError(t, c.Put(ctx, testStore(t, "alpha", "Link", "LinkOptions")))

	infos, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "zeta", infos[1].Name)
	assert.Equal(t, 2, infos[0].Entries)
	assert.Equal(t, symindex.SnapshotSchemaVersion, infos[0].SchemaVersion)
	assert.Equal(t, "docs/search#all", infos[0].Source)
	assert.True(t, infos[0].ImportedAt.After(before), "import time %v not recorded", infos[0].ImportedAt)

	info, err := c.Stat(ctx, "zeta")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Entries)

	_, err = c.Stat(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	c := openMemory(t)
	_, err := c.Get(context.Background(), "efm-sdk")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, testStore(t, "a", "Link")))
	require.NoError(t, c.Put(ctx, testStore(t, "b", "LinkOptions")))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "LinkOptions", got.Entry(0).Label)

	assert.ErrorIs(t, c.Delete(ctx, "a"), ErrNotFound)
}

func TestCorruptCatalog(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, testStore(t, "efm-sdk", "Link", "LinkOptions")))

	t.Run("missing rows", func(t *testing.T) {
		_, err := c.db.ExecContext(ctx, `DELETE FROM targets WHERE entry = 1`)
		require.NoError(t, err)
		_, err = c.Get(ctx, "efm-sdk")
		assert.ErrorIs(t, err, symindex.ErrMalformedIndex)
	})

	t.Run("unsupported schema version", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, testStore(t, "efm-sdk", "Link")))
		_, err := c.db.ExecContext(ctx, `UPDATE snapshots SET schema_version = 99 WHERE name = 'efm-sdk'`)
		require.NoError(t, err)
		_, err = c.Get(ctx, "efm-sdk")
		assert.ErrorIs(t, err, symindex.ErrMalformedIndex)
	})
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	c, err := Open(ctx, path)
	require.NoError(t, err)
	store := testStore(t, "efm-sdk", "Link", "LinkOptions")
	require.NoError(t, c.Put(ctx, store))
	require.NoError(t, c.Close())

	c, err = Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, "efm-sdk")
	require.NoError(t, err)
	assert.True(t, store.Equal(got))
}
