package main

import (
	"fmt"
	"log"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the snapshot catalog shared with the MCP server",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the snapshots stored in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogExportCmd = &cobra.Command{
	Use:   "export <name> <out>",
	Short: "Write a stored snapshot to a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runCatalogExport,
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a snapshot from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRemove,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogExportCmd, catalogRemoveCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	path, _, _, err := catalogPaths()
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer cat.Close()

	infos, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s is empty.\n", path)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCHEMA\tENTRIES\tSOURCE\tIMPORTED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\tv%d\t%d\t%s\t%s\n", info.Name, info.SchemaVersion, info.Entries,
			info.Source, info.ImportedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	path, _, _, err := catalogPaths()
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer cat.Close()

	store, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := store.WriteFile(args[1]); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("✓ Exported %s (%d entries) to %s", store.Name(), store.Size(), args[1])
	return nil
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
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

	if err := cat.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	log.Printf("✓ Removed %s from %s", args[0], path)
	return nil
}
