package tools

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/cases"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// Index is the ranked side of a loaded snapshot. bleve.Index satisfies it;
// tests substitute mocks.
type Index interface {
	// Search executes a search request
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)

	// DocCount returns the number of indexed entries
	DocCount() (uint64, error)

	// Close releases the index
	Close() error
}

// Fields of a ranked entry document.
const (
	rankFieldName  = "name"  // case-folded label, one keyword term
	rankFieldLabel = "label" // label as written, analysed
	rankFieldScope = "scope" // owning scopes of every target, analysed

	rankBatchSize = 500
)

// Clause boosts of a ranked query. They order hits within a match tier only.
const (
	boostExact     = 10
	boostPrefix    = 5
	boostSubstring = 1
	boostScope     = 0.5
)

// Match tiers, best first: an exact name beats a prefix, a prefix beats a
// substring, and entries matching only by scope come last.
const (
	tierExact = iota
	tierPrefix
	tierSubstring
	tierScope
)

// rankedHit is one ranked search hit, mapped back to its store position.
type rankedHit struct {
	Position int
	Score    float64
	tier     int
}

// matchTier classifies how folded, the folded query, matches entry i of store.
func matchTier(store *symindex.Store, i int, folded string) int {
	label := store.FoldedLabel(i)
	switch {
	case label == folded:
		return tierExact
	case strings.HasPrefix(label, folded):
		return tierPrefix
	case strings.Contains(label, folded):
		return tierSubstring
	default:
		return tierScope
	}
}

func newRankMapping() mapping.IndexMapping {
	name := bleve.NewKeywordFieldMapping()
	name.Store = false

	label := bleve.NewTextFieldMapping()
	label.Analyzer = standard.Name
	label.Store = false

	scope := bleve.NewTextFieldMapping()
	scope.Analyzer = standard.Name
	scope.Store = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(rankFieldName, name)
	doc.AddFieldMappingsAt(rankFieldLabel, label)
	doc.AddFieldMappingsAt(rankFieldScope, scope)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// rankDocID keys entries so that sorting by _id is table order.
func rankDocID(position int) string {
	return fmt.Sprintf("%08d", position)
}

// buildRankIndex indexes every entry of store in an in-memory bleve index.
func buildRankIndex(store *symindex.Store) (Index, error) {
	index, err := bleve.NewMemOnly(newRankMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create ranked index: %w", err)
	}

	batch := index.NewBatch()
	for i, e := range store.All() {
		scopes := make([]string, 0, len(e.Targets))
		for _, t := range e.Targets {
			if t.Scope != "" {
				scopes = append(scopes, t.Scope)
			}
		}
		doc := map[string]interface{}{
			rankFieldName:  store.FoldedLabel(i),
			rankFieldLabel: e.Label,
			rankFieldScope: strings.Join(scopes, " "),
		}
		if err := batch.Index(rankDocID(i), doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to add entry %d to batch: %w", i, err)
		}

		if batch.Size() >= rankBatchSize {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return nil, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return index, nil
}

// rankedQuery matches labels equal to, starting with or containing text,
// ignoring case, plus entries whose scope mentions it.
func rankedQuery(text string) query.Query {
	folded := cases.Fold().String(strings.TrimSpace(text))
	if folded == "" {
		return bleve.NewMatchAllQuery()
	}

	exact := bleve.NewTermQuery(folded)
	exact.SetField(rankFieldName)
	exact.SetBoost(boostExact)

	prefix := bleve.NewPrefixQuery(folded)
	prefix.SetField(rankFieldName)
	prefix.SetBoost(boostPrefix)

	scope := bleve.NewMatchQuery(text)
	scope.SetField(rankFieldScope)
	scope.SetBoost(boostScope)

	clauses := []query.Query{exact, prefix, scope}

	// * and ? would be read as wildcards.
	if !strings.ContainsAny(folded, "*?") {
		substring := bleve.NewWildcardQuery("*" + folded + "*")
		substring.SetField(rankFieldName)
		substring.SetBoost(boostSubstring)
		clauses = append(clauses, substring)
	}

	return bleve.NewDisjunctionQuery(clauses...)
}

// rankedSearch returns up to limit hits of store ordered by match tier, then
// score, then table order, and the total number of matching entries.
func rankedSearch(index Index, store *symindex.Store, text string, limit int) ([]rankedHit, int, error) {
	count, err := index.DocCount()
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}

	// Tiers are assigned here, so every match is fetched before truncating.
	req := bleve.NewSearchRequestOptions(rankedQuery(text), int(count), 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}

	folded := cases.Fold().String(strings.TrimSpace(text))
	hits := make([]rankedHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		pos, err := strconv.Atoi(h.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("unexpected document id %q: %w", h.ID, err)
		}
		hits = append(hits, rankedHit{Position: pos, Score: h.Score, tier: matchTier(store, pos, folded)})
	}

	slices.SortStableFunc(hits, func(a, b rankedHit) int {
		return cmp.Or(
			cmp.Compare(a.tier, b.tier),
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.Position, b.Position),
		)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, int(res.Total), nil
}
