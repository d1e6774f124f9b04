package main

import (
	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of serialized snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(symindex.Schema())
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
