package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/catalog"
	"github.com/efmdocs/symbolsearch/internal/config"
	"github.com/efmdocs/symbolsearch/internal/searchdata"
	"github.com/efmdocs/symbolsearch/internal/symindex"
)

var (
	flagBuildName     string
	flagBuildCategory string
	flagBuildImport   bool
)

var buildCmd = &cobra.Command{
	Use:   "build <search-dir> <out>",
	Short: "Build a snapshot from a Doxygen search directory",
	Long: `Parses every <category>_<hex>.js bucket of a Doxygen search directory and
writes the snapshot to <out>, zstd-compressed when <out> ends in .zst.
With --import the snapshot is also stored in the catalog.`,
	Args: cobra.ExactArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagBuildName, "name", config.DefaultSnapshotName, "Snapshot name")
	buildCmd.Flags().StringVar(&flagBuildCategory, "category", string(searchdata.CategoryAll), "Search bucket category to read (defaults to the category configured for --name)")
	buildCmd.Flags().BoolVar(&flagBuildImport, "import", false, "Also import the snapshot into the catalog")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	searchDir, out := args[0], args[1]
	startTime := time.Now()

	categoryName := flagBuildCategory
	if !cmd.Flags().Changed("category") {
		categoryName = configuredCategory(flagBuildName, categoryName)
	}
	category, err := searchdata.ParseCategory(categoryName)
	if err != nil {
		return err
	}

	log.Printf("EFM SDK Symbol Indexer (snapshot schema v%d)", symindex.SnapshotSchemaVersion)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	files, err := searchdata.BucketFiles(searchDir, category)
	if err != nil {
		return err
	}
	log.Printf("Parsing %d %s buckets in %s", len(files), category, searchDir)

	store, err := searchdata.LoadDir(cmd.Context(), searchDir, flagBuildName, category)
	if err != nil {
		return fmt.Errorf("failed to parse search data: %w", err)
	}
	log.Printf("✓ Parsed %d entries", store.Size())

	if err := store.WriteFile(out); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("✓ Snapshot written: %s", out)

	if flagBuildImport {
		if err := importSnapshot(cmd, store); err != nil {
			return err
		}
	}

	m := store.Manifest()
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Build complete in %v", time.Since(startTime).Round(time.Millisecond))
	log.Printf("")
	log.Printf("Snapshot details:")
	log.Printf("  Name:     %s", m.Name)
	log.Printf("  Location: %s", filepath.Clean(out))
	log.Printf("  Entries:  %d", store.Size())
	log.Printf("  Source:   %s", m.Source)
	return nil
}

// configuredCategory returns the category configured for the snapshot name,
// or fallback when the config has none.
func configuredCategory(name, fallback string) string {
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Printf("Warning: Could not load config: %v", err)
		return fallback
	}
	if sc, ok := cfg.Snapshot(name); ok && sc.Category != "" {
		return sc.Category
	}
	return fallback
}

// importSnapshot stores store in the catalog under the catalog lock.
func importSnapshot(cmd *cobra.Command, store *symindex.Store) error {
	path, lockPath, cfg, err := catalogPaths()
	if err != nil {
		return err
	}

	unlock, err := catalog.AcquireLock(cmd.Context(), lockPath, cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	cat, err := catalog.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := cat.Put(cmd.Context(), store); err != nil {
		return fmt.Errorf("failed to import snapshot: %w", err)
	}
	log.Printf("✓ Imported %s into %s", store.Name(), path)
	return nil
}
