package tools

import (
	"embed"
	"io/fs"
)

// Embed the default snapshots into the binary so the server answers searches
// before any source is configured or imported.
//
// Embedded files:
// - data/snapshots/<name>.json: serialized snapshots, one per default name

//go:embed data/snapshots/*.json
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS.
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a production DataProvider that uses embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

// ReadFile reads the named file from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

// ReadDir reads the named directory from the embedded filesystem.
func (p *embeddedDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fs.ReadDir(name)
}

// Default provider used by the snapshot loaders
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
