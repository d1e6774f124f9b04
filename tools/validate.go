package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efmdocs/symbolsearch/internal/searchdata"
	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// ValidateSnapshotInput defines input for validate_snapshot tool
type ValidateSnapshotInput struct {
	Content       string `json:"content,omitempty" jsonschema:"Serialized snapshot JSON to check (use either content or path)"`
	Path          string `json:"path,omitempty" jsonschema:"Snapshot file (.json or .json.zst) or Doxygen search directory on the server's filesystem"`
	Category      string `json:"category,omitempty" jsonschema:"Search bucket category when path is a directory (optional, defaults to all)"`
	IncludeSchema bool   `json:"include_schema,omitempty" jsonschema:"Return the snapshot JSON Schema when the snapshot is invalid (optional, defaults to false)"`
}

// ValidateSnapshotOutput defines output for validate_snapshot tool
type ValidateSnapshotOutput struct {
	Valid    bool               `json:"valid"`
	Name     string             `json:"name,omitempty"`
	Entries  int                `json:"entries"`
	Problems []symindex.Problem `json:"problems"`
	Message  string             `json:"message"`
	Schema   string             `json:"schema,omitempty"`
}

// ValidateSnapshot checks a serialized snapshot or a Doxygen search directory
func ValidateSnapshot(ctx context.Context, req *mcp.CallToolRequest, input ValidateSnapshotInput) (*mcp.CallToolResult, ValidateSnapshotOutput, error) {
	if (input.Content == "") == (input.Path == "") {
		return nil, ValidateSnapshotOutput{}, fmt.Errorf("exactly one of content or path is required")
	}

	var (
		store *symindex.Store
		err   error
	)
	switch {
	case input.Content != "":
		store, err = symindex.Decode([]byte(input.Content))
	default:
		store, err = validatePath(ctx, input.Path, input.Category)
	}

	output := ValidateSnapshotOutput{Problems: []symindex.Problem{}}
	if err == nil {
		output.Valid = true
		output.Name = store.Name()
		output.Entries = store.Size()
		output.Message = fmt.Sprintf("Snapshot %s is valid (%d entries)", store.Name(), store.Size())
		return nil, output, nil
	}

	var malformedErr *symindex.MalformedError
	switch {
	case errors.As(err, &malformedErr):
		output.Problems = malformedErr.Problems
	case errors.Is(err, symindex.ErrEmptyIndex):
		output.Problems = []symindex.Problem{{Path: "/entries", Message: "snapshot has no entries"}}
	default:
		output.Problems = []symindex.Problem{{Message: err.Error()}}
	}
	output.Message = fmt.Sprintf("Snapshot is invalid: %d problem(s) found", len(output.Problems))
	if input.IncludeSchema {
		output.Schema = string(symindex.Schema())
	}
	return nil, output, nil
}

func validatePath(ctx context.Context, path, categoryName string) (*symindex.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		category, err := searchdata.ParseCategory(categoryName)
		if err != nil {
			return nil, err
		}
		return searchdata.LoadDir(ctx, path, info.Name(), category)
	}

	data, err := symindex.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return symindex.Decode(data)
}
