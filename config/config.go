// Package config loads the pagekit runtime configuration from a YAML file
// with environment variable overrides (PAGEKIT_*).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// StorageBackend selects where preferences persist.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageSQLite StorageBackend = "sqlite"
)

// Config is the top-level pagekit configuration, corresponding to
// pagekit.yml.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime" koanf:"runtime"`
	Endpoints EndpointsConfig `yaml:"endpoints" koanf:"endpoints"`
	Storage   StorageConfig   `yaml:"storage" koanf:"storage"`
	Search    SearchConfig    `yaml:"search" koanf:"search"`
	Index     IndexConfig     `yaml:"index" koanf:"index"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Logging   LoggingConfig   `yaml:"logging" koanf:"logging"`
}

// RuntimeConfig tunes the component runtime.
type RuntimeConfig struct {
	// MarkerAttr is the attribute discovery scans for. Defaults to
	// data-component.
	MarkerAttr string `yaml:"marker_attr" koanf:"marker_attr"`

	// DiscoveryInterval is the minimum interval between reactive discovery
	// passes.
	DiscoveryInterval time.Duration `yaml:"discovery_interval" koanf:"discovery_interval"`

	// ReactiveDiscovery enables mutation-driven discovery.
	ReactiveDiscovery bool `yaml:"reactive_discovery" koanf:"reactive_discovery"`

	// DefaultTheme is the theme applied when no preference is stored.
	DefaultTheme string `yaml:"default_theme" koanf:"default_theme"`
}

// EndpointsConfig points at the remote assistant services.
type EndpointsConfig struct {
	ChatURL      string        `yaml:"chat_url" koanf:"chat_url"`
	SummarizeURL string        `yaml:"summarize_url" koanf:"summarize_url"`
	Timeout      time.Duration `yaml:"timeout" koanf:"timeout"`
}

// StorageConfig selects and locates the preference store.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend" koanf:"backend"`
	Path    string         `yaml:"path" koanf:"path"`
}

// SearchConfig locates the search corpus and index.
type SearchConfig struct {
	// DataFile is the JSON document array produced by the site build.
	DataFile string `yaml:"data_file" koanf:"data_file"`

	// IndexPath is where the search index lives on disk. Empty means
	// in-memory.
	IndexPath string `yaml:"index_path" koanf:"index_path"`

	// MaxResults caps one query's result set.
	MaxResults int `yaml:"max_results" koanf:"max_results"`
}

// IndexConfig configures the embeddings indexer.
type IndexConfig struct {
	// EmbeddingModel names the OpenAI embedding model.
	EmbeddingModel string `yaml:"embedding_model" koanf:"embedding_model"`

	// VectorPath is where the vector collection persists. Empty means
	// in-memory.
	VectorPath string `yaml:"vector_path" koanf:"vector_path"`

	// Collection names the vector collection.
	Collection string `yaml:"collection" koanf:"collection"`

	// ChunkSize is the maximum characters per indexed chunk.
	ChunkSize int `yaml:"chunk_size" koanf:"chunk_size"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string   `yaml:"addr" koanf:"addr"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`

	// ContentDir holds the rendered pages served after enhancement.
	ContentDir string `yaml:"content_dir" koanf:"content_dir"`

	// PageCacheTTL caches enhanced pages for this long. Zero disables the
	// cache; every request then runs the full lifecycle pass.
	PageCacheTTL time.Duration `yaml:"page_cache_ttl" koanf:"page_cache_ttl"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" koanf:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MarkerAttr:        "data-component",
			DiscoveryInterval: 200 * time.Millisecond,
			ReactiveDiscovery: true,
			DefaultTheme:      "light",
		},
		Endpoints: EndpointsConfig{
			Timeout: 20 * time.Second,
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
		Search: SearchConfig{
			DataFile:   "index.json",
			MaxResults: 25,
		},
		Index: IndexConfig{
			EmbeddingModel: "text-embedding-3-small",
			Collection:     "docs",
			ChunkSize:      2000,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			ContentDir: "public",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. PAGEKIT_SERVER_ADDR maps to server.addr,
// and so on: one underscore per nesting level.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("PAGEKIT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "PAGEKIT_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[StorageBackend]bool{
	StorageMemory: true,
	StorageSQLite: true,
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Runtime.MarkerAttr == "" {
		return fmt.Errorf("runtime.marker_attr is required")
	}
	if !strings.HasPrefix(c.Runtime.MarkerAttr, "data-") {
		return fmt.Errorf("runtime.marker_attr %q must be a data- attribute", c.Runtime.MarkerAttr)
	}
	if c.Runtime.DiscoveryInterval <= 0 {
		return fmt.Errorf("runtime.discovery_interval must be positive")
	}
	if c.Runtime.DefaultTheme != "light" && c.Runtime.DefaultTheme != "dark" {
		return fmt.Errorf("runtime.default_theme %q: must be light or dark", c.Runtime.DefaultTheme)
	}

	if c.Endpoints.Timeout <= 0 {
		return fmt.Errorf("endpoints.timeout must be positive")
	}

	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("storage.backend %q: must be memory or sqlite", c.Storage.Backend)
	}
	if c.Storage.Backend == StorageSQLite && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the sqlite backend")
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive")
	}

	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.PageCacheTTL < 0 {
		return fmt.Errorf("server.page_cache_ttl must not be negative")
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level %q: must be one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format %q: must be text or json", c.Logging.Format)
	}

	return nil
}
