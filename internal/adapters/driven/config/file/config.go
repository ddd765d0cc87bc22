// Package file loads the TOML configuration and serves live tunables to
// the core services. The file is optional: a missing config means defaults.
// A running process picks up edits through an fsnotify watch, so retrieval
// weights can be tuned without restarting.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
)

// Ensure Config implements the interface.
var _ driven.ConfigSource = (*Config)(nil)

// Defaults applied for any value the file does not set.
const (
	DefaultBM25Weight      = 0.4
	DefaultEmbeddingWeight = 0.6
	DefaultRelevanceFloor  = 0.75
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultLockTimeout     = 30 * time.Second
)

// Settings is the on-disk TOML shape.
type Settings struct {
	Store     StoreSettings     `toml:"store"`
	Chunking  ChunkingSettings  `toml:"chunking"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Embedding EmbeddingSettings `toml:"embedding"`
}

// StoreSettings configure the SQLite store.
type StoreSettings struct {
	// DataDir overrides the database directory (default: ~/.corpus/data).
	DataDir string `toml:"data_dir"`

	// LockTimeoutSeconds bounds the exclusive write lock wait.
	LockTimeoutSeconds int `toml:"lock_timeout_seconds"`
}

// ChunkingSettings configure the fixed-size overlapping chunk policy.
type ChunkingSettings struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// RetrievalSettings configure score fusion.
type RetrievalSettings struct {
	BM25Weight      float64 `toml:"bm25_weight"`
	EmbeddingWeight float64 `toml:"embedding_weight"`
	RelevanceFloor  float64 `toml:"relevance_floor"`
}

// EmbeddingSettings configure the embedding provider.
type EmbeddingSettings struct {
	// Provider selects the backend: "ollama" (default), "openai" or "none".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key for
	// remote providers. The key itself never lives in the config file.
	APIKeyEnv string `toml:"api_key_env"`

	// RatePerSecond caps embedding requests per second. Zero means no cap.
	RatePerSecond float64 `toml:"rate_per_second"`
}

// Config is the live configuration handle. Reads are safe from any
// goroutine; Reload and the fsnotify watch swap the settings atomically.
type Config struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

// Load reads the config file under configDir, applying defaults for
// anything unset. If configDir is empty, defaults to ~/.corpus.
// A missing file is not an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".corpus")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	c := &Config{path: filepath.Join(configDir, "config.toml")}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the file and swaps the settings.
func (c *Config) Reload() error {
	settings := defaults()

	data, err := os.ReadFile(c.path)
	switch {
	case os.IsNotExist(err):
		// No file yet: run on defaults.
	case err != nil:
		return fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		applyDefaults(&settings)
	}

	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return nil
}

// Retrieval returns the current score-fusion parameters.
func (c *Config) Retrieval() driven.RetrievalParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return driven.RetrievalParams{
		BM25Weight:      c.settings.Retrieval.BM25Weight,
		EmbeddingWeight: c.settings.Retrieval.EmbeddingWeight,
		RelevanceFloor:  c.settings.Retrieval.RelevanceFloor,
	}
}

// Chunking returns the current chunking policy.
func (c *Config) Chunking() driven.ChunkingParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return driven.ChunkingParams{
		Size:    c.settings.Chunking.Size,
		Overlap: c.settings.Chunking.Overlap,
	}
}

// Store returns the store settings.
func (c *Config) Store() StoreSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Store
}

// LockTimeout returns the configured write lock timeout.
func (c *Config) LockTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.settings.Store.LockTimeoutSeconds) * time.Second
}

// Embedding returns the embedding provider settings.
func (c *Config) Embedding() EmbeddingSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Embedding
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// Watch reloads the config whenever the file changes, until the stop
// channel closes. Reload failures keep the previous settings; onError is
// called when non-nil.
func (c *Config) Watch(stop <-chan struct{}, onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// a file watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != c.path {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if err := c.Reload(); err != nil && onError != nil {
					onError(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			case <-stop:
				return
			}
		}
	}()

	return nil
}

func defaults() Settings {
	return Settings{
		Store: StoreSettings{
			LockTimeoutSeconds: int(DefaultLockTimeout / time.Second),
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			BM25Weight:      DefaultBM25Weight,
			EmbeddingWeight: DefaultEmbeddingWeight,
			RelevanceFloor:  DefaultRelevanceFloor,
		},
		Embedding: EmbeddingSettings{
			Provider: "ollama",
		},
	}
}

// applyDefaults backfills zero values after a partial file parse.
func applyDefaults(s *Settings) {
	def := defaults()
	if s.Store.LockTimeoutSeconds <= 0 {
		s.Store.LockTimeoutSeconds = def.Store.LockTimeoutSeconds
	}
	if s.Chunking.Size <= 0 {
		s.Chunking.Size = def.Chunking.Size
	}
	if s.Chunking.Overlap < 0 {
		s.Chunking.Overlap = def.Chunking.Overlap
	}
	if s.Retrieval.BM25Weight <= 0 && s.Retrieval.EmbeddingWeight <= 0 {
		s.Retrieval.BM25Weight = def.Retrieval.BM25Weight
		s.Retrieval.EmbeddingWeight = def.Retrieval.EmbeddingWeight
	}
	if s.Retrieval.RelevanceFloor <= 0 {
		s.Retrieval.RelevanceFloor = def.Retrieval.RelevanceFloor
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = def.Embedding.Provider
	}
}
