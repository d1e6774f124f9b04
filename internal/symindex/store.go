package symindex

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/text/cases"
)

// Store is an immutable search table for one documentation snapshot.
type Store struct {
	manifest Manifest
	entries  []Entry
	// folded holds the case-folded label of each entry, by position.
	folded []string
}

// New builds a store from a manifest and entries in generator order.
// The entries are copied; later changes to the arguments do not affect the store.
func New(manifest Manifest, entries []Entry) (*Store, error) {
	if manifest.SchemaVersion != SnapshotSchemaVersion {
		return nil, malformed("/manifest/schema_version", "unsupported schema version %d (want %d)",
			manifest.SchemaVersion, SnapshotSchemaVersion)
	}
	if manifest.Name == "" {
		return nil, malformed("/manifest/name", "snapshot name is empty")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("snapshot %q: %w", manifest.Name, ErrEmptyIndex)
	}

	s := &Store{
		manifest: manifest,
		entries:  make([]Entry, len(entries)),
		folded:   make([]string, len(entries)),
	}
	fold := cases.Fold()
	for i, e := range entries {
		if e.Label == "" {
			return nil, malformed(fmt.Sprintf("/entries/%d/label", i), "label is empty")
		}
		if len(e.Targets) == 0 {
			return nil, malformed(fmt.Sprintf("/entries/%d/targets", i), "entry %q has no targets", e.Label)
		}
		for j, t := range e.Targets {
			if t.Anchor == "" {
				return nil, malformed(fmt.Sprintf("/entries/%d/targets/%d/anchor", i, j), "anchor is empty")
			}
		}
		s.entries[i] = e.clone()
		s.folded[i] = fold.String(e.Label)
	}
	return s, nil
}

// Load parses a serialized snapshot.
//
// Structurally invalid input fails with an error matching ErrMalformedIndex,
// a snapshot without entries with ErrEmptyIndex. No partial store is returned.
func Load(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read snapshot: %w", err)
	}
	return Decode(data)
}

// Decode parses a serialized snapshot held in memory. See Load.
func Decode(data []byte) (*Store, error) {
	if problems := Validate(data); len(problems) > 0 {
		return nil, &MalformedError{Problems: problems}
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, malformed("", "cannot decode snapshot: %v", err)
	}
	return New(snap.Manifest, snap.Entries)
}

// Encode writes the snapshot in its serialized form.
func (s *Store) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot{Manifest: s.manifest, Entries: s.entries}); err != nil {
		return fmt.Errorf("cannot encode snapshot %q: %w", s.manifest.Name, err)
	}
	return nil
}

// Manifest returns the snapshot manifest.
func (s *Store) Manifest() Manifest {
	return s.manifest
}

// Name returns the snapshot name.
func (s *Store) Name() string {
	return s.manifest.Name
}

// Size returns the number of entries.
func (s *Store) Size() int {
	return len(s.entries)
}

// Entry returns a copy of the entry at position i. It panics if i is out of range.
func (s *Store) Entry(i int) Entry {
	return s.entries[i].clone()
}

// All returns every entry with its position, in table order.
func (s *Store) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range s.entries {
			if !yield(i, e.clone()) {
				return
			}
		}
	}
}

// Query returns the entries whose label contains text, ignoring case.
// An empty text yields the full table.
func (s *Store) Query(text string) iter.Seq[Entry] {
	needle := cases.Fold().String(text)
	return s.filter(func(label string) bool {
		return strings.Contains(label, needle)
	})
}

// QueryPrefix returns the entries whose label starts with text, ignoring case.
func (s *Store) QueryPrefix(text string) iter.Seq[Entry] {
	needle := cases.Fold().String(text)
	return s.filter(func(label string) bool {
		return strings.HasPrefix(label, needle)
	})
}

// FoldedLabel returns the case-folded label at position i.
func (s *Store) FoldedLabel(i int) string {
	return s.folded[i]
}

func (s *Store) filter(match func(folded string) bool) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i, label := range s.folded {
			if !match(label) {
				continue
			}
			if !yield(s.entries[i].clone()) {
				return
			}
		}
	}
}

// Equal reports whether two stores hold the same manifest and entries.
func (s *Store) Equal(other *Store) bool {
	if s.manifest != other.manifest || len(s.entries) != len(other.entries) {
		return false
	}
	for i := range s.entries {
		if !s.entries[i].Equal(other.entries[i]) {
			return false
		}
	}
	return true
}
