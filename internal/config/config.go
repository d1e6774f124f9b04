package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/efmdocs/symbolsearch/internal/searchdata"
)

// EnvPath overrides the config file location.
const EnvPath = "EFMDOC_CONFIG"

// DefaultSnapshotName is the snapshot shipped inside the server binary.
const DefaultSnapshotName = "efm-sdk"

// Snapshot configures one documentation snapshot served by the MCP server.
type Snapshot struct {
	Name string `yaml:"name"`
	// Source is a snapshot file (.json or .json.zst) or a Doxygen search/
	// directory. Empty means the embedded snapshot of the same name.
	Source string `yaml:"source,omitempty"`
	// Category selects the search buckets when Source is a directory.
	Category string `yaml:"category,omitempty"`
	// BaseURL is prepended to anchors in search results.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Config is the in-memory representation of ~/.efmdoc-mcp/config.yaml.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	DefaultSnapshot string        `yaml:"default_snapshot"`
	MaxResults      int           `yaml:"max_results"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	StaleAfter      time.Duration `yaml:"stale_after"`
	Snapshots       []Snapshot    `yaml:"snapshots,omitempty"`
}

// Dir returns the absolute path to ~/.efmdoc-mcp/.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".efmdoc-mcp"), nil
}

// Path returns the config file location: $EFMDOC_CONFIG if set, otherwise
// ~/.efmdoc-mcp/config.yaml.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return ExpandPath(p)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	dataDir := filepath.Join(".", "data")
	if dir, err := Dir(); err == nil {
		dataDir = dir
	}
	return &Config{
		DataDir:         dataDir,
		DefaultSnapshot: DefaultSnapshotName,
		MaxResults:      20,
		LockTimeout:     5 * time.Second,
		StaleAfter:      7 * 24 * time.Hour,
		Snapshots:       []Snapshot{{Name: DefaultSnapshotName}},
	}
}

// Load reads the config file at path. A missing file yields Default.
// Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if cfg.DataDir, err = ExpandPath(cfg.DataDir); err != nil {
		return nil, err
	}
	for i := range cfg.Snapshots {
		if cfg.Snapshots[i].Source, err = ExpandPath(cfg.Snapshots[i].Source); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the config from Path.
func LoadDefault() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Validate checks the configuration and makes sure the default snapshot is
// among the configured ones.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %v", c.LockTimeout)
	}
	if c.DefaultSnapshot == "" {
		c.DefaultSnapshot = DefaultSnapshotName
	}

	seen := make(map[string]bool, len(c.Snapshots))
	for i, s := range c.Snapshots {
		if s.Name == "" {
			return fmt.Errorf("snapshots[%d]: name is empty", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("snapshots[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if _, err := searchdata.ParseCategory(s.Category); err != nil {
			return fmt.Errorf("snapshots[%d]: %w", i, err)
		}
	}
	if _, ok := c.Snapshot(c.DefaultSnapshot); !ok {
		c.Snapshots = append(c.Snapshots, Snapshot{Name: c.DefaultSnapshot})
	}
	return nil
}

// Snapshot returns the configuration of the named snapshot.
func (c *Config) Snapshot(name string) (Snapshot, bool) {
	for _, s := range c.Snapshots {
		if s.Name == name {
			return s, true
		}
	}
	return Snapshot{}, false
}

// CatalogPath is the SQLite catalog holding imported snapshots.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// LockPath is the file lock serialising catalog writers across processes.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "catalog.lock")
}
