package searchdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// BucketFiles lists the <category>_<hex>.js fragments in dir ordered by
// bucket number, which is the generator's alphabetical order.
func BucketFiles(dir string, category Category) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read search directory: %w", err)
	}

	type bucket struct {
		n    uint64
		path string
	}
	var buckets []bucket
	prefix := string(category) + "_"
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".js") {
			continue
		}
		hex := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".js")
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			// e.g. all_b.js matches, all_b_extra.js does not
			continue
		}
		buckets = append(buckets, bucket{n: n, path: filepath.Join(dir, name)})
	}

	slices.SortFunc(buckets, func(a, b bucket) int {
		return int(a.n) - int(b.n)
	})
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.path
	}
	return out, nil
}

// ParseDir parses every bucket of category in dir concurrently and returns
// the entries in bucket order.
func ParseDir(ctx context.Context, dir string, category Category) ([]symindex.Entry, error) {
	files, err := BucketFiles(dir, category)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s_*.js fragments in %s: %w", category, dir, symindex.ErrEmptyIndex)
	}

	parsed := make([][]symindex.Entry, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := ParseFile(path)
			if err != nil {
				return err
			}
			parsed[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parsed...), nil
}

// LoadDir builds a store named name from the fragments of category in dir.
func LoadDir(ctx context.Context, dir, name string, category Category) (*symindex.Store, error) {
	entries, err := ParseDir(ctx, dir, category)
	if err != nil {
		return nil, err
	}
	manifest := symindex.Manifest{
		SchemaVersion: symindex.SnapshotSchemaVersion,
		Name:          name,
		Generator:     Generator,
		Source:        filepath.ToSlash(dir) + "#" + string(category),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	return symindex.New(manifest, entries)
}
