package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	retrieval := cfg.Retrieval()
	assert.Equal(t, DefaultBM25Weight, retrieval.BM25Weight)
	assert.Equal(t, DefaultEmbeddingWeight, retrieval.EmbeddingWeight)
	assert.Equal(t, DefaultRelevanceFloor, retrieval.RelevanceFloor)

	chunking := cfg.Chunking()
	assert.Equal(t, DefaultChunkSize, chunking.Size)
	assert.Equal(t, DefaultChunkOverlap, chunking.Overlap)

	assert.Equal(t, DefaultLockTimeout, cfg.LockTimeout())
	assert.Equal(t, "ollama", cfg.Embedding().Provider)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[retrieval]
bm25_weight = 0.7
embedding_weight = 0.3
relevance_floor = 0.5

[chunking]
size = 500
overlap = 50

[store]
lock_timeout_seconds = 5

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key_env = "OPENAI_API_KEY"
rate_per_second = 2.5
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	retrieval := cfg.Retrieval()
	assert.Equal(t, 0.7, retrieval.BM25Weight)
	assert.Equal(t, 0.3, retrieval.EmbeddingWeight)
	assert.Equal(t, 0.5, retrieval.RelevanceFloor)

	chunking := cfg.Chunking()
	assert.Equal(t, 500, chunking.Size)
	assert.Equal(t, 50, chunking.Overlap)

	assert.Equal(t, 5*time.Second, cfg.LockTimeout())

	embedding := cfg.Embedding()
	assert.Equal(t, "openai", embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", embedding.Model)
	assert.Equal(t, "OPENAI_API_KEY", embedding.APIKeyEnv)
	assert.Equal(t, 2.5, embedding.RatePerSecond)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[retrieval]
bm25_weight = 0.5
embedding_weight = 0.5
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Retrieval().BM25Weight)
	assert.Equal(t, DefaultRelevanceFloor, cfg.Retrieval().RelevanceFloor)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking().Size)
}

func TestLoad_InvalidToml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `[retrieval`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultBM25Weight, cfg.Retrieval().BM25Weight)

	writeConfig(t, dir, `
[retrieval]
bm25_weight = 0.9
embedding_weight = 0.1
`)

	require.NoError(t, cfg.Reload())
	assert.Equal(t, 0.9, cfg.Retrieval().BM25Weight)
}

func TestWatch_PicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	stop := make(chan struct{})
	defer close(stop)
	require.NoError(t, cfg.Watch(stop, nil))

	writeConfig(t, dir, `
[retrieval]
bm25_weight = 0.8
embedding_weight = 0.2
`)

	assert.Eventually(t, func() bool {
		return cfg.Retrieval().BM25Weight == 0.8
	}, 3*time.Second, 20*time.Millisecond)
}
