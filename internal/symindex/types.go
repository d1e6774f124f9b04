package symindex

import "slices"

// SnapshotSchemaVersion increments when the serialized snapshot layout changes.
const SnapshotSchemaVersion = 1

// Target is one documentation location of a label.
type Target struct {
	// Anchor locates the rendered documentation (page plus in-page fragment).
	Anchor string `json:"anchor"`
	// Scope is the qualified name the symbol lives in, for display only.
	Scope string `json:"scope"`
	// Qualifier distinguishes overloads, typically the parameter list.
	Qualifier string `json:"qualifier,omitempty"`
}

// Entry is one row of the search table.
type Entry struct {
	Label   string   `json:"label"`
	Targets []Target `json:"targets"`
}

func (e Entry) clone() Entry {
	return Entry{Label: e.Label, Targets: slices.Clone(e.Targets)}
}

// Equal reports whether two entries have the same label and targets in the same order.
func (e Entry) Equal(other Entry) bool {
	return e.Label == other.Label && slices.Equal(e.Targets, other.Targets)
}

// Manifest describes a snapshot.
type Manifest struct {
	SchemaVersion int    `json:"schema_version"`
	Name          string `json:"name"`
	Generator     string `json:"generator,omitempty"`
	Source        string `json:"source,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// snapshot is the serialized form of a Store.
type snapshot struct {
	Manifest Manifest `json:"manifest"`
	Entries  []Entry  `json:"entries"`
}
