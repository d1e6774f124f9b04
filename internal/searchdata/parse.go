package searchdata

import (
	"fmt"
	"io"
	"os"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// Parse reads one Doxygen search fragment:
//
//	var searchData=
//	[
//	  ['link',['Link',['../classcisco_1_1efm__sdk_1_1Link.html',1,'cisco::efm_sdk::Link']]],
//	  ...
//	];
//
// Each record becomes one entry, each ['anchor',flag,'scope'] triple one
// target. The leading search key is Doxygen's own lookup key and is dropped.
// Structural problems fail with an error matching symindex.ErrMalformedIndex.
func Parse(r io.Reader) ([]symindex.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read search data: %w", err)
	}

	records, err := newLiteralParser(string(data)).parseDocument()
	if err != nil {
		return nil, err
	}

	entries := make([]symindex.Entry, 0, len(records))
	for i, rec := range records {
		entry, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %s", symindex.ErrMalformedIndex, i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseFile is Parse for a fragment on disk.
func ParseFile(path string) ([]symindex.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search data: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// parseRecord converts ['key',['Label',target,...]].
func parseRecord(rec any) (symindex.Entry, error) {
	fields, ok := rec.([]any)
	if !ok || len(fields) != 2 {
		return symindex.Entry{}, fmt.Errorf("want [key, [label, targets...]], got %s", shape(rec))
	}
	if _, ok := fields[0].(string); !ok {
		return symindex.Entry{}, fmt.Errorf("search key is %s, want string", describe(fields[0]))
	}
	body, ok := fields[1].([]any)
	if !ok {
		return symindex.Entry{}, fmt.Errorf("record body is %s, want array", describe(fields[1]))
	}
	if len(body) < 2 {
		return symindex.Entry{}, fmt.Errorf("record has no targets")
	}
	rawLabel, ok := body[0].(string)
	if !ok {
		return symindex.Entry{}, fmt.Errorf("label is %s, want string", describe(body[0]))
	}
	label := CleanText(rawLabel)
	if label == "" {
		return symindex.Entry{}, fmt.Errorf("label is empty")
	}

	entry := symindex.Entry{Label: label, Targets: make([]symindex.Target, 0, len(body)-1)}
	for j, raw := range body[1:] {
		target, err := parseTarget(label, raw)
		if err != nil {
			return symindex.Entry{}, fmt.Errorf("%q target %d: %w", label, j, err)
		}
		entry.Targets = append(entry.Targets, target)
	}
	return entry, nil
}

// parseTarget converts ['anchor',flag,'scope'].
func parseTarget(label string, raw any) (symindex.Target, error) {
	fields, ok := raw.([]any)
	if !ok || len(fields) != 3 {
		return symindex.Target{}, fmt.Errorf("want [anchor, flag, scope], got %s", shape(raw))
	}
	anchor, ok := fields[0].(string)
	if !ok || CleanAnchor(anchor) == "" {
		return symindex.Target{}, fmt.Errorf("anchor must be a non-empty string")
	}
	if _, ok := fields[1].(int64); !ok {
		return symindex.Target{}, fmt.Errorf("link flag is %s, want number", describe(fields[1]))
	}
	rawScope, ok := fields[2].(string)
	if !ok {
		return symindex.Target{}, fmt.Errorf("scope is %s, want string", describe(fields[2]))
	}

	scope, qualifier := SplitScope(label, rawScope)
	return symindex.Target{
		Anchor:    CleanAnchor(anchor),
		Scope:     scope,
		Qualifier: qualifier,
	}, nil
}

func shape(v any) string {
	if arr, ok := v.([]any); ok {
		return fmt.Sprintf("array of %d", len(arr))
	}
	return describe(v)
}
