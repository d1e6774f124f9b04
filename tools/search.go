package tools

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// SearchSymbolsInput defines input for search_symbols tool
type SearchSymbolsInput struct {
	Query      string `json:"query" jsonschema:"Text to look for in symbol names, case-insensitive; empty lists every symbol"`
	Snapshot   string `json:"snapshot,omitempty" jsonschema:"Snapshot to search (optional, defaults to the configured default snapshot)"`
	Mode       string `json:"mode,omitempty" jsonschema:"substring (default) keeps index order, prefix matches name starts, ranked orders by relevance"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to max_results from the config)"`
}

// SymbolTarget is one documentation location of a symbol
type SymbolTarget struct {
	Anchor    string `json:"anchor"`
	Scope     string `json:"scope"`
	Qualifier string `json:"qualifier,omitempty"`
	URL       string `json:"url,omitempty"`
}

// SymbolResult is one matching index entry
type SymbolResult struct {
	Label   string         `json:"label"`
	Targets []SymbolTarget `json:"targets"`
	Score   float64        `json:"score,omitempty"`
}

// SearchSymbolsOutput defines output for search_symbols tool
type SearchSymbolsOutput struct {
	Results   []SymbolResult `json:"results"`
	Query     string         `json:"query"`
	Snapshot  string         `json:"snapshot"`
	Mode      string         `json:"mode"`
	TotalHits int            `json:"total_hits"`
	Truncated bool           `json:"truncated"`
}

// ListSnapshotsInput defines input for list_snapshots tool
type ListSnapshotsInput struct{}

// SnapshotStatus describes one configured snapshot
type SnapshotStatus struct {
	Name       string             `json:"name"`
	Default    bool               `json:"default"`
	Loaded     bool               `json:"loaded"`
	Source     string             `json:"source,omitempty"`
	Origin     string             `json:"origin,omitempty"`
	Entries    int                `json:"entries"`
	Manifest   *symindex.Manifest `json:"manifest,omitempty"`
	ImportedAt time.Time          `json:"imported_at,omitempty"`
	LoadedAt   time.Time          `json:"loaded_at,omitempty"`
	Stale      bool               `json:"stale"`
}

// CatalogSnapshot describes one snapshot stored in the catalog
type CatalogSnapshot struct {
	Name          string    `json:"name"`
	SchemaVersion int       `json:"schema_version"`
	Entries       int       `json:"entries"`
	ImportedAt    time.Time `json:"imported_at"`
}

// ListSnapshotsOutput defines output for list_snapshots tool
type ListSnapshotsOutput struct {
	Snapshots []SnapshotStatus  `json:"snapshots"`
	Catalog   []CatalogSnapshot `json:"catalog,omitempty"`
	Embedded  []string          `json:"embedded,omitempty"`
}

// RefreshSnapshotInput defines input for refresh_snapshot tool
type RefreshSnapshotInput struct {
	Snapshot string `json:"snapshot,omitempty" jsonschema:"Snapshot to refresh (optional, defaults to the configured default snapshot)"`
	Force    bool   `json:"force,omitempty" jsonschema:"Reload even if the snapshot is not stale (optional, defaults to false)"`
}

// RefreshSnapshotOutput defines output for refresh_snapshot tool
type RefreshSnapshotOutput struct {
	Snapshot   string    `json:"snapshot"`
	Updated    bool      `json:"updated"`
	Origin     string    `json:"origin,omitempty"`
	Entries    int       `json:"entries"`
	LastUpdate time.Time `json:"last_update"`
	Message    string    `json:"message"`
}

// SearchSymbols searches a snapshot's symbol table
func (s *symbolSearch) SearchSymbols(ctx context.Context, req *mcp.CallToolRequest, input SearchSymbolsInput) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	h, err := s.holder(input.Snapshot)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}

	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = ModeSubstring
	}
	if mode != ModeSubstring && mode != ModePrefix && mode != ModeRanked {
		return nil, SearchSymbolsOutput{}, fmt.Errorf("unknown search mode %q (want %s, %s or %s)",
			input.Mode, ModeSubstring, ModePrefix, ModeRanked)
	}

	limit := input.MaxResults
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}
	limit = min(limit, maxResultsCap)

	snap, err := s.acquire(ctx, h)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	defer snap.release()

	output := SearchSymbolsOutput{
		Results:  []SymbolResult{},
		Query:    input.Query,
		Snapshot: h.config.Name,
		Mode:     mode,
	}

	if mode == ModeRanked {
		hits, total, err := rankedSearch(snap.index, snap.store, input.Query, limit)
		if err != nil {
			return nil, SearchSymbolsOutput{}, err
		}
		for _, hit := range hits {
			result := s.toResult(h, snap.store.Entry(hit.Position))
			result.Score = hit.Score
			output.Results = append(output.Results, result)
		}
		output.TotalHits = total
		output.Truncated = total > len(hits)
		return nil, output, nil
	}

	var matches iter.Seq[symindex.Entry]
	if mode == ModePrefix {
		matches = snap.store.QueryPrefix(input.Query)
	} else {
		matches = snap.store.Query(input.Query)
	}
	for e := range matches {
		output.TotalHits++
		if len(output.Results) < limit {
			output.Results = append(output.Results, s.toResult(h, e))
		}
	}
	output.Truncated = output.TotalHits > len(output.Results)

	return nil, output, nil
}

func (s *symbolSearch) toResult(h *snapshotHolder, e symindex.Entry) SymbolResult {
	result := SymbolResult{
		Label:   e.Label,
		Targets: make([]SymbolTarget, 0, len(e.Targets)),
	}
	for _, t := range e.Targets {
		target := SymbolTarget{Anchor: t.Anchor, Scope: t.Scope, Qualifier: t.Qualifier}
		if base := h.config.BaseURL; base != "" {
			target.URL = strings.TrimSuffix(base, "/") + "/" + t.Anchor
		}
		result.Targets = append(result.Targets, target)
	}
	return result
}

// ListSnapshots reports every configured snapshot and the catalog contents
func (s *symbolSearch) ListSnapshots(ctx context.Context, req *mcp.CallToolRequest, input ListSnapshotsInput) (*mcp.CallToolResult, ListSnapshotsOutput, error) {
	output := ListSnapshotsOutput{
		Snapshots: make([]SnapshotStatus, 0, len(s.cfg.Snapshots)),
		Embedded:  embeddedSnapshotNames(),
	}

	for _, sc := range s.cfg.Snapshots {
		h := s.holders[sc.Name]
		status := SnapshotStatus{
			Name:    sc.Name,
			Default: sc.Name == s.cfg.DefaultSnapshot,
			Source:  sc.Source,
		}
		if snap := h.current.Load(); snap != nil {
			manifest := snap.store.Manifest()
			status.Loaded = true
			status.Origin = snap.origin
			status.Entries = snap.store.Size()
			status.Manifest = &manifest
			status.ImportedAt = snap.importedAt
			status.LoadedAt = snap.loadedAt
			status.Stale = s.isStale(snap)
		}
		output.Snapshots = append(output.Snapshots, status)
	}

	if s.catalog != nil {
		infos, err := s.catalog.List(ctx)
		if err != nil {
			log.Printf("Warning: Could not list catalog: %v", err)
		}
		for _, info := range infos {
			output.Catalog = append(output.Catalog, CatalogSnapshot{
				Name:          info.Name,
				SchemaVersion: info.SchemaVersion,
				Entries:       info.Entries,
				ImportedAt:    info.ImportedAt,
			})
		}
	}

	return nil, output, nil
}

// RefreshSnapshot reloads a snapshot from its source
func (s *symbolSearch) RefreshSnapshot(ctx context.Context, req *mcp.CallToolRequest, input RefreshSnapshotInput) (*mcp.CallToolResult, RefreshSnapshotOutput, error) {
	h, err := s.holder(input.Snapshot)
	if err != nil {
		return nil, RefreshSnapshotOutput{}, err
	}

	output := RefreshSnapshotOutput{
		Snapshot: h.config.Name,
		Updated:  false,
	}

	// Check if refresh needed
	if snap := h.current.Load(); !input.Force && snap != nil && !s.isStale(snap) {
		output.Origin = snap.origin
		output.Entries = snap.store.Size()
		output.LastUpdate = snap.importedAt
		output.Message = fmt.Sprintf("Snapshot is fresh (last updated: %s)", snap.importedAt.Format(time.RFC3339))
		return nil, output, nil
	}

	if err := s.refresh(ctx, h, input.Force); err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}

	snap := h.current.Load()
	if snap != nil {
		output.Origin = snap.origin
		output.Entries = snap.store.Size()
		output.LastUpdate = snap.importedAt
	}
	output.Updated = true
	output.Message = fmt.Sprintf("Snapshot %s refreshed successfully, %d entries indexed", h.config.Name, output.Entries)

	return nil, output, nil
}
