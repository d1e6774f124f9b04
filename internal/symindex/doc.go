// Package symindex holds the symbol search table of one documentation snapshot.
//
// A snapshot is produced once by the documentation build and never mutated
// afterwards. A [Store] is loaded from its serialized form, answers label
// lookups and is replaced wholesale when the documented SDK is rebuilt.
//
// # Usage
//
//	store, err := symindex.LoadFile("snapshots/efm-sdk-1.2.5.json.zst")
//	if errors.Is(err, symindex.ErrEmptyIndex) {
//	    // build defect: the generator produced no symbols
//	}
//
//	for entry := range store.Query("linkopt") {
//	    fmt.Println(entry.Label, entry.Targets[0].Anchor)
//	}
//
// # Matching
//
// [Store.Query] matches labels by case-insensitive substring using Unicode
// case folding, [Store.QueryPrefix] by case-insensitive prefix. Both return
// lazy sequences in table order that can be ranged over any number of times.
// An empty query yields the full table.
//
// # Thread Safety
//
// A Store is read-only after construction and safe for concurrent use.
// Entries handed out by the store are copies.
package symindex
