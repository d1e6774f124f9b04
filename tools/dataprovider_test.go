package tools

import (
	"io/fs"
	"testing"
)

func TestMockDataProvider_ReadFile(t *testing.T) {
	mock := NewMockDataProvider()

	// Add a test file
	mock.AddFile("data/snapshots/test.json", []byte("test content"))

	// Read existing file
	content, err := mock.ReadFile("data/snapshots/test.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(content) != "test content" {
		t.Errorf("Expected 'test content', got: %s", string(content))
	}

	// Try to read non-existent file
	_, err = mock.ReadFile("data/snapshots/missing.json")
	if err != fs.ErrNotExist {
		t.Errorf("Expected fs.ErrNotExist, got: %v", err)
	}
}

func TestMockDataProvider_ReadDir(t *testing.T) {
	mock := NewMockDataProvider()

	mock.AddFile("data/snapshots/zeta.json", []byte("{}"))
	mock.AddFile("data/snapshots/alpha.json", []byte("{}"))
	mock.AddFile("data/snapshots/old/alpha.json", []byte("{}"))

	entries, err := mock.ReadDir("data/snapshots")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []struct {
		name  string
		isDir bool
	}{
		{"alpha.json", false},
		{"old", true},
		{"zeta.json", false},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got: %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Name() != w.name || entries[i].IsDir() != w.isDir {
			t.Errorf("Entry %d: got (%s, dir=%v), want (%s, dir=%v)",
				i, entries[i].Name(), entries[i].IsDir(), w.name, w.isDir)
		}
	}

	// Try to read non-existent directory
	_, err = mock.ReadDir("data/missing")
	if err != fs.ErrNotExist {
		t.Errorf("Expected fs.ErrNotExist, got: %v", err)
	}
}

func TestMockDataProvider_SetAndReset(t *testing.T) {
	// Create mock provider
	mock := NewMockDataProvider()
	mock.AddFile("data/snapshots/test.json", []byte(`{"test": true}`))

	// Set as default
	originalProvider := defaultDataProvider
	defer func() {
		defaultDataProvider = originalProvider
	}()

	SetDefaultDataProvider(mock)

	// Verify it's being used
	content, err := defaultDataProvider.ReadFile("data/snapshots/test.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(content) != `{"test": true}` {
		t.Errorf("Expected test JSON, got: %s", string(content))
	}
	if names := embeddedSnapshotNames(); len(names) != 1 || names[0] != "test" {
		t.Errorf("Expected snapshot names [test], got: %v", names)
	}

	// Reset to default
	ResetDefaultDataProvider()

	// Verify reset worked (defaultDataProvider should be different now)
	if defaultDataProvider == mock {
		t.Error("Expected defaultDataProvider to be reset")
	}
}

func TestEmbeddedDataProvider(t *testing.T) {
	names := embeddedSnapshotNames()
	if len(names) == 0 || names[0] != "efm-sdk" {
		t.Fatalf("Expected embedded efm-sdk snapshot, got: %v", names)
	}

	store, err := loadEmbedded("efm-sdk")
	if err != nil {
		t.Fatalf("Embedded snapshot does not load: %v", err)
	}
	if store.Name() != "efm-sdk" {
		t.Errorf("Expected name efm-sdk, got: %s", store.Name())
	}
	if store.Size() != 109 {
		t.Errorf("Expected 109 entries, got: %d", store.Size())
	}

	if _, err := loadEmbedded("missing"); err == nil {
		t.Error("Expected error for a snapshot that is not embedded")
	}
}

func TestMockDirEntry(t *testing.T) {
	entry := &mockDirEntry{
		name:  "test.json",
		isDir: false,
	}

	if entry.Name() != "test.json" {
		t.Errorf("Expected name 'test.json', got: %s", entry.Name())
	}

	if entry.IsDir() {
		t.Error("Expected file, got directory")
	}

	if entry.Type() == fs.ModeDir {
		t.Error("Expected file type, got directory type")
	}

	info, err := entry.Info()
	if err != nil {
		t.Fatalf("Expected no error from Info(), got: %v", err)
	}

	if info.Name() != "test.json" {
		t.Errorf("Expected info name 'test.json', got: %s", info.Name())
	}

	dir := &mockDirEntry{name: "old", isDir: true}
	if dir.Type() != fs.ModeDir {
		t.Error("Expected directory type")
	}
}
