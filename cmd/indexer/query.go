package main

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

var (
	flagQueryPrefix bool
	flagQueryLimit  int
)

var queryCmd = &cobra.Command{
	Use:   "query <snapshot> [text]",
	Short: "Search a snapshot file by symbol name",
	Long: `Prints the entries whose label contains text, ignoring case, in index order.
Without text every entry is printed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&flagQueryPrefix, "prefix", false, "Match label prefixes only")
	queryCmd.Flags().IntVar(&flagQueryLimit, "limit", 20, "Maximum number of entries to print (0 for all)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	store, err := symindex.LoadFile(args[0])
	if err != nil {
		return err
	}

	text := ""
	if len(args) == 2 {
		text = args[1]
	}

	var matches iter.Seq[symindex.Entry]
	if flagQueryPrefix {
		matches = store.QueryPrefix(text)
	} else {
		matches = store.Query(text)
	}

	out := cmd.OutOrStdout()
	shown, total := 0, 0
	for e := range matches {
		total++
		if flagQueryLimit > 0 && shown >= flagQueryLimit {
			continue
		}
		shown++
		printEntry(out, e)
	}

	if total == 0 {
		fmt.Fprintf(out, "No symbols matching %q.\n", text)
		return nil
	}
	if shown < total {
		fmt.Fprintf(out, "\n%d of %d matches shown (use --limit 0 for all).\n", shown, total)
	}
	return nil
}

func printEntry(out io.Writer, e symindex.Entry) {
	fmt.Fprintln(out, e.Label)
	for _, t := range e.Targets {
		var b strings.Builder
		b.WriteString("  ")
		if t.Scope != "" {
			b.WriteString(t.Scope)
			b.WriteString(" ")
		}
		if t.Qualifier != "" {
			b.WriteString(t.Qualifier)
			b.WriteString(" ")
		}
		b.WriteString("-> ")
		b.WriteString(t.Anchor)
		fmt.Fprintln(out, b.String())
	}
}
