// Command indexer builds, inspects and queries symbol snapshots.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "indexer",
	Short:        "Build and inspect EFM SDK symbol snapshots",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `indexer turns the Doxygen docs/search/ fragments of the EFM SDK documentation
into symbol snapshots, imports them into the snapshot catalog and queries them.`,
}

var flagCatalog string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "Snapshot catalog (defaults to catalog.db in the configured data_dir)")
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// catalogPaths resolves the catalog and its lock file from --catalog or the config.
func catalogPaths() (path, lockPath string, cfg *config.Config, err error) {
	cfg, err = config.LoadDefault()
	if err != nil {
		return "", "", nil, fmt.Errorf("cannot load config: %w", err)
	}
	if flagCatalog == "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", "", nil, fmt.Errorf("cannot create data directory: %w", err)
		}
		return cfg.CatalogPath(), cfg.LockPath(), cfg, nil
	}
	path, err = config.ExpandPath(flagCatalog)
	if err != nil {
		return "", "", nil, err
	}
	return path, path + ".lock", cfg, nil
}
