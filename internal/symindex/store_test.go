package symindex

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest() Manifest {
	return Manifest{
		SchemaVersion: SnapshotSchemaVersion,
		Name:          "efm-sdk-test",
		Generator:     "doxygen",
	}
}

func testEntries() []Entry {
	return []Entry{
		{Label: "Link", Targets: []Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1Link.html", Scope: "cisco::efm_sdk"},
			{Anchor: "classcisco_1_1efm__sdk_1_1Link.html#ab24f7f8e", Scope: "cisco::efm_sdk::Link", Qualifier: "()"},
		}},
		{Label: "LinkOptions", Targets: []Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1LinkOptions.html", Scope: "cisco::efm_sdk"},
		}},
		{Label: "link_name", Targets: []Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1LinkOptions.html#a02f4efd3", Scope: "cisco::efm_sdk::LinkOptions"},
		}},
		{Label: "make_node", Targets: []Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1NodeBuilder.html#afc49ae50", Scope: "cisco::efm_sdk::NodeBuilder", Qualifier: "(const std::string &name)"},
		}},
		{Label: "Link", Targets: []Target{
			{Anchor: "classcisco_1_1efm__sdk_1_1Link.html#a417fcd7b", Scope: "cisco::efm_sdk::Link", Qualifier: "(LinkOptions &&options, LinkType link_type)"},
		}},
	}
}

// mustNew builds a store or fails the test.
func mustNew(tb testing.TB, entries []Entry) *Store {
	tb.Helper()
	store, err := New(testManifest(), entries)
	require.NoError(tb, err, "New failed")
	return store
}

func labels(seq func(func(Entry) bool)) []string {
	var out []string
	for e := range seq {
		out = append(out, e.Label)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		store := mustNew(t, testEntries())
		assert.Equal(t, 5, store.Size())
		assert.Equal(t, "efm-sdk-test", store.Name())
	})

	t.Run("no entries", func(t *testing.T) {
		t.Parallel()
		_, err := New(testManifest(), nil)
		require.ErrorIs(t, err, ErrEmptyIndex)
		assert.NotErrorIs(t, err, ErrMalformedIndex)
	})

	t.Run("empty label", func(t *testing.T) {
		t.Parallel()
		_, err := New(testManifest(), []Entry{{Targets: []Target{{Anchor: "a.html"}}}})
		require.ErrorIs(t, err, ErrMalformedIndex)
	})

	t.Run("missing targets", func(t *testing.T) {
		t.Parallel()
		_, err := New(testManifest(), []Entry{{Label: "Link"}})
		require.ErrorIs(t, err, ErrMalformedIndex)

		var malformedErr *MalformedError
		require.ErrorAs(t, err, &malformedErr)
		require.Len(t, malformedErr.Problems, 1)
		assert.Equal(t, "/entries/0/targets", malformedErr.Problems[0].Path)
	})

	t.Run("empty anchor", func(t *testing.T) {
		t.Parallel()
		_, err := New(testManifest(), []Entry{{Label: "Link", Targets: []Target{{Scope: "cisco"}}}})
		require.ErrorIs(t, err, ErrMalformedIndex)
	})

	t.Run("wrong schema version", func(t *testing.T) {
		t.Parallel()
		m := testManifest()
		m.SchemaVersion = SnapshotSchemaVersion + 1
		_, err := New(m, testEntries())
		require.ErrorIs(t, err, ErrMalformedIndex)
	})

	t.Run("copies input", func(t *testing.T) {
		t.Parallel()
		entries := testEntries()
		store := mustNew(t, entries)
		entries[0].Label = "Changed"
		entries[0].Targets[0].Anchor = "changed.html"
		got := store.Entry(0)
		assert.Equal(t, "Link", got.Label)
		assert.Equal(t, "classcisco_1_1efm__sdk_1_1Link.html", got.Targets[0].Anchor)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "lowercase substring", query: "link", want: []string{"Link", "LinkOptions", "link_name", "Link"}},
		{name: "mixed case substring", query: "Options", want: []string{"LinkOptions"}},
		{name: "middle of label", query: "_NOD", want: []string{"make_node"}},
		{name: "exact label", query: "make_node", want: []string{"make_node"}},
		{name: "no match", query: "requester", want: nil},
		{name: "empty returns all in order", query: "", want: []string{"Link", "LinkOptions", "link_name", "make_node", "Link"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, labels(store.Query(tt.query)))
		})
	}
}

func TestQuery_LinkExample(t *testing.T) {
	t.Parallel()

	store := mustNew(t, []Entry{
		{Label: "Link", Targets: []Target{{Anchor: "classLink.html", Scope: "cisco::efm_sdk"}}},
		{Label: "LinkOptions", Targets: []Target{{Anchor: "classLinkOptions.html", Scope: "cisco::efm_sdk"}}},
	})

	assert.Equal(t, []string{"Link", "LinkOptions"}, labels(store.Query("link")))
	assert.Equal(t, []string{"LinkOptions"}, labels(store.Query("Options")))
}

func TestQuery_EveryLabelFindsItself(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())
	for i, entry := range store.All() {
		found := false
		for got := range store.Query(entry.Label) {
			if got.Equal(entry) {
				found = true
				break
			}
		}
		assert.True(t, found, "entry %d (%s) not found by its own label", i, entry.Label)
	}
}

func TestQuery_UnicodeFolding(t *testing.T) {
	t.Parallel()

	store := mustNew(t, []Entry{
		{Label: "Straße", Targets: []Target{{Anchor: "a.html"}}},
		{Label: "ΣΊΣΥΦΟΣ", Targets: []Target{{Anchor: "b.html"}}},
	})

	assert.Equal(t, []string{"Straße"}, labels(store.Query("STRASSE")))
	assert.Equal(t, []string{"ΣΊΣΥΦΟΣ"}, labels(store.Query("σίσυφος")))
}

func TestQuery_Restartable(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())
	seq := store.Query("link")

	first := labels(seq)
	second := labels(seq)
	assert.Equal(t, first, second)

	// Early termination must not affect later iterations.
	for range seq {
		break
	}
	assert.Equal(t, first, labels(seq))
}

func TestQuery_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())
	for e := range store.Query("Link") {
		e.Targets[0].Anchor = "mutated.html"
	}
	assert.Equal(t, "classcisco_1_1efm__sdk_1_1Link.html", store.Entry(0).Targets[0].Anchor)
}

func TestQueryPrefix(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())

	assert.Equal(t, []string{"Link", "LinkOptions", "link_name", "Link"}, labels(store.QueryPrefix("LINK")))
	assert.Equal(t, []string{"LinkOptions"}, labels(store.QueryPrefix("linko")))
	assert.Empty(t, labels(store.QueryPrefix("options")))
	assert.Len(t, labels(store.QueryPrefix("")), store.Size())
}

func TestQuery_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if got := len(labels(store.Query("link"))); got != 4 {
					t.Errorf("Query(link) returned %d entries, want 4", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEncodeLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())

	var buf bytes.Buffer
	require.NoError(t, store.Encode(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.True(t, store.Equal(loaded), "round-tripped store differs")
	assert.Equal(t, store.Size(), loaded.Size())

	for i, e := range store.All() {
		assert.Equal(t, e, loaded.Entry(i))
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
		size    int
	}{
		{
			name:  "valid",
			input: `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"Link","targets":[{"anchor":"classLink.html","scope":"cisco::efm_sdk"}]}]}`,
			size:  1,
		},
		{
			name:    "empty entries",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[]}`,
			wantErr: ErrEmptyIndex,
		},
		{
			name:    "record missing target list",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"Link"}]}`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "empty target list",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"Link","targets":[]}]}`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "empty label",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"","targets":[{"anchor":"a","scope":""}]}]}`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "target is not an object",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"Link","targets":["classLink.html"]}]}`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "unknown field",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[],"extra":true}`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "not JSON",
			input:   `var searchData=[];`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "truncated",
			input:   `{"manifest":{"schema_version":1,"name":"s"},"entries":[{"label":"Link"`,
			wantErr: ErrMalformedIndex,
		},
		{
			name:    "unsupported version",
			input:   `{"manifest":{"schema_version":7,"name":"s"},"entries":[{"label":"Link","targets":[{"anchor":"a","scope":""}]}]}`,
			wantErr: ErrMalformedIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := Load(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, store, "no partial store on failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, store.Size())
		})
	}
}

func TestLoad_ReaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Load(failingReader{err: boom})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMalformedIndex)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestAll_StopsEarly(t *testing.T) {
	t.Parallel()

	store := mustNew(t, testEntries())
	var seen []int
	for i := range store.All() {
		seen = append(seen, i)
		if i == 1 {
			break
		}
	}
	assert.True(t, slices.Equal([]int{0, 1}, seen))
}
