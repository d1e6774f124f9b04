package symindex

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// SchemaURL identifies the snapshot JSON Schema.
const SchemaURL = "https://efmdocs.github.io/schema/snapshot.json"

//go:embed snapshot.schema.json
var schemaJSON []byte

// Schema returns the JSON Schema that serialized snapshots must satisfy.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(SchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add snapshot schema: %w", err)
	}
	return compiler.Compile(SchemaURL)
})

// Validate checks data against the snapshot schema and returns every problem found.
// A nil result means the document is structurally valid; it may still be empty
// or carry an unsupported schema version.
func Validate(data []byte) []Problem {
	schema, err := compiledSchema()
	if err != nil {
		return []Problem{{Message: err.Error()}}
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []Problem{{Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []Problem{{Message: err.Error()}}
	}

	printer := message.NewPrinter(language.English)
	problems := collectProblems(validationErr, printer, nil)
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Path < problems[j].Path
	})
	return problems
}

// collectProblems flattens the leaves of a validation error tree.
func collectProblems(validationErr *jsonschema.ValidationError, printer *message.Printer, out []Problem) []Problem {
	if len(validationErr.Causes) == 0 {
		path := ""
		if len(validationErr.InstanceLocation) > 0 {
			path = "/" + strings.Join(validationErr.InstanceLocation, "/")
		}
		return append(out, Problem{
			Path:    path,
			Message: validationErr.ErrorKind.LocalizedString(printer),
		})
	}
	for _, cause := range validationErr.Causes {
		out = collectProblems(cause, printer, out)
	}
	return out
}
