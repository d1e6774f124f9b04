package tools

import (
	"io/fs"
)

// DataProvider gives access to the snapshots shipped with the server.
//
// Implementations:
//   - embeddedDataProvider: embed.FS with the build-time snapshots
//   - MockDataProvider: in-memory map for tests
type DataProvider interface {
	// ReadFile reads the named file and returns its contents.
	// The name is relative to the data root (e.g., "data/snapshots/efm-sdk.json").
	ReadFile(name string) ([]byte, error)

	// ReadDir reads the named directory and returns its entries.
	// The name is relative to the data root (e.g., "data/snapshots").
	ReadDir(name string) ([]fs.DirEntry, error)
}
