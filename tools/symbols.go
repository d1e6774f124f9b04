package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/efmdocs/symbolsearch/internal/catalog"
	"github.com/efmdocs/symbolsearch/internal/config"
	"github.com/efmdocs/symbolsearch/internal/searchdata"
	"github.com/efmdocs/symbolsearch/internal/symindex"
)

const (
	maxResultsCap       = 100
	embeddedSnapshotDir = "data/snapshots"
)

// Search modes.
const (
	ModeSubstring = "substring"
	ModePrefix    = "prefix"
	ModeRanked    = "ranked"
)

// Where a loaded snapshot came from.
const (
	originCatalog  = "catalog"
	originSource   = "source"
	originEmbedded = "embedded"
)

var (
	// ErrUnknownSnapshot is returned for snapshot names missing from the configuration.
	ErrUnknownSnapshot = errors.New("unknown snapshot")

	// ErrSearchClosed is returned by searches after CloseSymbolSearch.
	ErrSearchClosed = errors.New("symbol search is closed")
)

// loadedSnapshot is one searchable snapshot. Its data is never modified once
// installed; a refresh installs a new one and retires this one.
type loadedSnapshot struct {
	store      *symindex.Store
	index      Index
	origin     string
	importedAt time.Time
	loadedAt   time.Time

	// mu guards refs and retired
	mu      sync.Mutex
	refs    int
	retired bool

	// closed is closed once index has been closed; closeErr is set before
	closed   chan struct{}
	closeErr error
}

func newLoadedSnapshot(store *symindex.Store, origin string, importedAt time.Time) (*loadedSnapshot, error) {
	index, err := buildRankIndex(store)
	if err != nil {
		return nil, err
	}
	return wrapSnapshot(store, index, origin, importedAt), nil
}

func wrapSnapshot(store *symindex.Store, index Index, origin string, importedAt time.Time) *loadedSnapshot {
	return &loadedSnapshot{
		store:      store,
		index:      index,
		origin:     origin,
		importedAt: importedAt,
		loadedAt:   time.Now(),
		closed:     make(chan struct{}),
	}
}

// tryAcquire registers one search on l. It fails once l is retired.
func (l *loadedSnapshot) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.retired {
		return false
	}
	l.refs++
	return true
}

// release ends a search registered by tryAcquire.
func (l *loadedSnapshot) release() {
	l.mu.Lock()
	l.refs--
	last := l.retired && l.refs == 0
	l.mu.Unlock()

	if last {
		l.closeIndex()
	}
}

// retire refuses new searches on l and closes its index once the running
// ones have released it.
func (l *loadedSnapshot) retire() {
	l.mu.Lock()
	if l.retired {
		l.mu.Unlock()
		return
	}
	l.retired = true
	idle := l.refs == 0
	l.mu.Unlock()

	if idle {
		l.closeIndex()
	}
}

func (l *loadedSnapshot) closeIndex() {
	l.closeErr = l.index.Close()
	close(l.closed)
}

// wait blocks until a retired snapshot's index is closed.
func (l *loadedSnapshot) wait() error {
	<-l.closed
	return l.closeErr
}

// snapshotHolder manages concurrent access to one configured snapshot
type snapshotHolder struct {
	config config.Snapshot

	// current holds the active snapshot (atomic access for lock-free reads)
	current atomic.Pointer[loadedSnapshot]

	// refreshMu serializes initialization and refresh of this snapshot.
	// Searches never take it.
	refreshMu sync.Mutex
}

// symbolSearch serves every configured snapshot.
type symbolSearch struct {
	cfg *config.Config

	// catalog persists imported snapshots; nil when it could not be opened
	catalog *catalog.Catalog

	// holders is built once and never modified
	holders map[string]*snapshotHolder

	// closed is set by close; no snapshot is loaded afterwards
	closed atomic.Bool
}

var (
	symbols *symbolSearch
)

func newSymbolSearch(cfg *config.Config, cat *catalog.Catalog) *symbolSearch {
	s := &symbolSearch{
		cfg:     cfg,
		catalog: cat,
		holders: make(map[string]*snapshotHolder, len(cfg.Snapshots)),
	}
	for _, sc := range cfg.Snapshots {
		s.holders[sc.Name] = &snapshotHolder{config: sc}
	}
	return s
}

// InitializeSymbolSearch opens the catalog and loads every configured snapshot.
// Snapshots that fail to load are retried on first use.
func InitializeSymbolSearch(ctx context.Context, cfg *config.Config) error {
	startTime := time.Now()
	log.Printf("Initializing symbol search...")

	if err := prepareDataDir(cfg); err != nil {
		return err
	}

	cat, err := catalog.Open(ctx, cfg.CatalogPath())
	if err != nil {
		log.Printf("Warning: Could not open snapshot catalog at %s: %v", cfg.CatalogPath(), err)
		log.Printf("Snapshots will be loaded from their sources on every start")
		cat = nil
	}

	symbols = newSymbolSearch(cfg, cat)

	loaded := 0
	for _, sc := range cfg.Snapshots {
		if err := symbols.initialize(ctx, symbols.holders[sc.Name]); err != nil {
			log.Printf("Warning: Snapshot %s initialization failed: %v", sc.Name, err)
			continue
		}
		loaded++
	}

	log.Printf("✓ Symbol search initialized (%d/%d snapshots) in %v",
		loaded, len(cfg.Snapshots), time.Since(startTime).Round(time.Millisecond))
	return nil
}

// prepareDataDir makes sure the data directory exists, falling back to
// ./data when the configured one cannot be created.
func prepareDataDir(cfg *config.Config) error {
	err := os.MkdirAll(cfg.DataDir, 0755)
	if err == nil {
		log.Printf("✓ Data directory: %s", cfg.DataDir)
		return nil
	}
	log.Printf("Warning: Could not create data directory at %s: %v", cfg.DataDir, err)

	cfg.DataDir = filepath.Join(".", "data")
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create fallback data directory: %w", err)
	}
	log.Printf("⚠️  Data directory (fallback): %s", cfg.DataDir)
	return nil
}

// holder returns the holder of name, or of the default snapshot when name is empty.
func (s *symbolSearch) holder(name string) (*snapshotHolder, error) {
	if name == "" {
		name = s.cfg.DefaultSnapshot
	}
	h, ok := s.holders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSnapshot, name)
	}
	return h, nil
}

// initialize loads h's snapshot if it is not loaded yet.
// Priority: catalog (if schema matches) > configured source > embedded snapshot.
func (s *symbolSearch) initialize(ctx context.Context, h *snapshotHolder) error {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	if s.closed.Load() {
		return ErrSearchClosed
	}
	if h.current.Load() != nil {
		return nil
	}

	startTime := time.Now()
	name := h.config.Name

	// Strategy 1: snapshot imported by a previous run
	snap, err := s.openFromCatalog(ctx, name)
	if err == nil {
		s.install(h, snap)
		log.Printf("✓ Snapshot %s initialized (%d entries, catalog v%d) in %v",
			name, snap.store.Size(), symindex.SnapshotSchemaVersion, time.Since(startTime).Round(time.Millisecond))
		if s.isStale(snap) {
			log.Printf("ℹ️  Snapshot %s was imported more than %v ago. Consider using refresh_snapshot to update.",
				name, s.cfg.StaleAfter)
		}
		return nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		log.Printf("Warning: Catalog copy of %s unusable: %v", name, err)
	}

	// Strategy 2: configured source, Strategy 3: embedded snapshot
	store, origin, err := s.loadFirstAvailable(ctx, h.config)
	if err != nil {
		return err
	}
	snap, err = newLoadedSnapshot(store, origin, time.Now())
	if err != nil {
		return err
	}
	if err := s.persist(ctx, store); err != nil {
		log.Printf("Warning: Snapshot %s not saved to catalog: %v", name, err)
	}
	s.install(h, snap)

	log.Printf("✓ Snapshot %s initialized (%d entries, %s) in %v",
		name, store.Size(), origin, time.Since(startTime).Round(time.Millisecond))
	if origin == originEmbedded {
		log.Printf("ℹ️  Using embedded snapshot (build-time). Configure a source and use refresh_snapshot to get your own docs.")
	}
	return nil
}

// openFromCatalog loads name from the catalog, dropping copies written with
// another schema version or that no longer load.
func (s *symbolSearch) openFromCatalog(ctx context.Context, name string) (*loadedSnapshot, error) {
	if s.catalog == nil {
		return nil, catalog.ErrNotFound
	}

	info, err := s.catalog.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	if info.SchemaVersion != symindex.SnapshotSchemaVersion {
		log.Printf("Snapshot schema version mismatch for %s (have: v%d, want: v%d), invalidating catalog copy...",
			name, info.SchemaVersion, symindex.SnapshotSchemaVersion)
		s.dropFromCatalog(ctx, name)
		return nil, fmt.Errorf("%s: %w", name, catalog.ErrNotFound)
	}

	store, err := s.catalog.Get(ctx, name)
	if err != nil {
		s.dropFromCatalog(ctx, name)
		return nil, err
	}
	return newLoadedSnapshot(store, originCatalog, info.ImportedAt)
}

func (s *symbolSearch) dropFromCatalog(ctx context.Context, name string) {
	unlock, err := catalog.AcquireLock(ctx, s.cfg.LockPath(), s.cfg.LockTimeout)
	if err != nil {
		log.Printf("Warning: Could not remove %s from catalog: %v", name, err)
		return
	}
	defer unlock()
	if err := s.catalog.Delete(ctx, name); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		log.Printf("Warning: Could not remove %s from catalog: %v", name, err)
	}
}

// loadFirstAvailable loads the configured source, falling back to the
// embedded snapshot of the same name.
func (s *symbolSearch) loadFirstAvailable(ctx context.Context, sc config.Snapshot) (*symindex.Store, string, error) {
	if sc.Source != "" {
		store, err := loadSource(ctx, sc)
		if err == nil {
			return store, originSource, nil
		}
		log.Printf("Warning: Source of snapshot %s failed to load: %v", sc.Name, err)
	}

	store, err := loadEmbedded(sc.Name)
	if err != nil {
		return nil, "", fmt.Errorf("no usable source for snapshot %s: %w", sc.Name, err)
	}
	return store, originEmbedded, nil
}

// loadSource reads a snapshot file or a Doxygen search directory.
func loadSource(ctx context.Context, sc config.Snapshot) (*symindex.Store, error) {
	info, err := os.Stat(sc.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	if info.IsDir() {
		category, err := searchdata.ParseCategory(sc.Category)
		if err != nil {
			return nil, err
		}
		return searchdata.LoadDir(ctx, sc.Source, sc.Name, category)
	}

	store, err := symindex.LoadFile(sc.Source)
	if err != nil {
		return nil, err
	}
	return renamed(store, sc.Name)
}

// loadEmbedded decodes the snapshot shipped in the binary under name.
func loadEmbedded(name string) (*symindex.Store, error) {
	data, err := defaultDataProvider.ReadFile(path.Join(embeddedSnapshotDir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("no embedded snapshot %s: %w", name, err)
	}
	return symindex.Decode(data)
}

// embeddedSnapshotNames lists the snapshots shipped in the binary.
func embeddedSnapshotNames() []string {
	entries, err := defaultDataProvider.ReadDir(embeddedSnapshotDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	return names
}

// renamed returns store under the configured name.
func renamed(store *symindex.Store, name string) (*symindex.Store, error) {
	if store.Name() == name {
		return store, nil
	}
	manifest := store.Manifest()
	manifest.Name = name
	entries := make([]symindex.Entry, 0, store.Size())
	for _, e := range store.All() {
		entries = append(entries, e)
	}
	return symindex.New(manifest, entries)
}

// persist writes store to the catalog under the inter-process lock.
func (s *symbolSearch) persist(ctx context.Context, store *symindex.Store) error {
	if s.catalog == nil {
		return nil
	}
	unlock, err := catalog.AcquireLock(ctx, s.cfg.LockPath(), s.cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer unlock()
	return s.catalog.Put(ctx, store)
}

// install atomically replaces h's snapshot. The old one is closed in the
// background once in-flight searches are done.
func (s *symbolSearch) install(h *snapshotHolder, snap *loadedSnapshot) {
	old := h.current.Swap(snap)
	if old == nil {
		return
	}
	old.retire()

	go func(old *loadedSnapshot) {
		log.Printf("Waiting for in-flight searches to complete before closing old %s index...", h.config.Name)
		waitStart := time.Now()
		if err := old.wait(); err != nil {
			log.Printf("Warning: Error closing old index: %v", err)
			return
		}
		log.Printf("✓ Old index closed successfully (waited %v)", time.Since(waitStart).Round(time.Millisecond))
	}(old)
}

// isStale reports whether snap was imported longer than stale_after ago.
func (s *symbolSearch) isStale(snap *loadedSnapshot) bool {
	return s.cfg.StaleAfter > 0 && time.Since(snap.importedAt) > s.cfg.StaleAfter
}

// needsRefresh checks if h has no snapshot or a stale one
func (s *symbolSearch) needsRefresh(h *snapshotHolder) bool {
	snap := h.current.Load()
	return snap == nil || s.isStale(snap)
}

// refresh reloads h from its source (or the embedded snapshot when it has
// none), saves it to the catalog and swaps it in.
func (s *symbolSearch) refresh(ctx context.Context, h *snapshotHolder, force bool) error {
	startTime := time.Now()

	// Serialize refresh operations (prevent concurrent refreshes)
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	if s.closed.Load() {
		return ErrSearchClosed
	}

	// Another goroutine may have refreshed while we were waiting
	if !force && !s.needsRefresh(h) {
		log.Printf("Snapshot %s was refreshed by another goroutine, skipping", h.config.Name)
		return nil
	}

	log.Printf("Starting refresh of snapshot %s (force=%v)...", h.config.Name, force)

	var (
		store  *symindex.Store
		origin string
		err    error
	)
	if h.config.Source != "" {
		store, err = loadSource(ctx, h.config)
		origin = originSource
	} else {
		store, err = loadEmbedded(h.config.Name)
		origin = originEmbedded
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	snap, err := newLoadedSnapshot(store, origin, time.Now())
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if err := s.persist(ctx, store); err != nil {
		snap.retire()
		return fmt.Errorf("failed to save snapshot to catalog: %w", err)
	}
	s.install(h, snap)

	log.Printf("✓ Snapshot %s refreshed (%d entries, %s) in %v",
		h.config.Name, store.Size(), origin, time.Since(startTime).Round(time.Millisecond))
	return nil
}

// acquire returns h's snapshot for one search, loading it on first use.
// The caller must call release on the snapshot when finished.
func (s *symbolSearch) acquire(ctx context.Context, h *snapshotHolder) (*loadedSnapshot, error) {
	for {
		if s.closed.Load() {
			return nil, ErrSearchClosed
		}

		snap := h.current.Load()
		if snap == nil {
			log.Printf("Snapshot %s not initialized, initializing now...", h.config.Name)
			if err := s.initialize(ctx, h); err != nil {
				return nil, fmt.Errorf("failed to initialize snapshot %s: %w", h.config.Name, err)
			}
			if snap = h.current.Load(); snap == nil {
				continue
			}
		}

		if snap.tryAcquire() {
			return snap, nil
		}
		// Replaced by a refresh between Load and tryAcquire; take the new one.
	}
}

// RegisterSymbolTools initializes symbol search and registers its tools
func RegisterSymbolTools(ctx context.Context, server *mcp.Server, cfg *config.Config) error {
	if err := InitializeSymbolSearch(ctx, cfg); err != nil {
		return err
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_symbols",
			Description: "Search the EFM SDK API documentation index by symbol name. Returns matching symbols with the documentation anchors of every overload.",
		},
		symbols.SearchSymbols,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_snapshots",
			Description: "List the configured documentation snapshots with their size, origin and manifest",
		},
		symbols.ListSnapshots,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_snapshot",
			Description: "Reload a documentation snapshot from its configured source and swap it in (auto-suggested when older than stale_after)",
		},
		symbols.RefreshSnapshot,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_snapshot",
			Description: "Check a serialized snapshot (inline JSON or a file path) or a Doxygen search directory and report every structural problem",
		},
		ValidateSnapshot,
	)

	return nil
}

// CloseSymbolSearch closes every loaded snapshot and the catalog
func CloseSymbolSearch() error {
	if symbols == nil {
		return nil
	}
	err := symbols.close()
	symbols = nil
	return err
}

func (s *symbolSearch) close() error {
	var closeErr error

	s.closed.Store(true)

	for name, h := range s.holders {
		// Serialize with a running initialize or refresh of this snapshot
		h.refreshMu.Lock()
		snap := h.current.Swap(nil)
		h.refreshMu.Unlock()
		if snap == nil {
			continue
		}

		log.Printf("Waiting for in-flight searches on %s to complete before closing...", name)
		snap.retire()
		if err := snap.wait(); err != nil {
			log.Printf("Error closing %s index: %v", name, err)
			closeErr = errors.Join(closeErr, err)
		}
	}

	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			log.Printf("Error closing catalog: %v", err)
			closeErr = errors.Join(closeErr, err)
		}
	}

	if closeErr == nil {
		log.Printf("✓ Symbol search closed successfully")
	}
	return closeErr
}
