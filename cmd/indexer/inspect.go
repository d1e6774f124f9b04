package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print the manifest and size of a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := symindex.ReadFile(args[0])
	if err != nil {
		return err
	}

	store, err := symindex.Decode(data)
	if err != nil {
		var malformed *symindex.MalformedError
		if errors.As(err, &malformed) {
			for _, p := range malformed.Problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", p)
			}
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}

	m := store.Manifest()
	targets := 0
	for _, e := range store.All() {
		targets += len(e.Targets)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "name:\t%s\n", m.Name)
	fmt.Fprintf(w, "schema_version:\t%d\n", m.SchemaVersion)
	fmt.Fprintf(w, "generator:\t%s\n", m.Generator)
	fmt.Fprintf(w, "source:\t%s\n", m.Source)
	fmt.Fprintf(w, "created_at:\t%s\n", m.CreatedAt)
	fmt.Fprintf(w, "entries:\t%d\n", store.Size())
	fmt.Fprintf(w, "targets:\t%d\n", targets)
	return w.Flush()
}
