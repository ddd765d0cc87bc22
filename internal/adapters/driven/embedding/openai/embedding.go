// Package openai provides the embedding provider for the OpenAI API,
// for users who accept sending chunk text off-device in exchange for
// stronger embeddings.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingService = (*Provider)(nil)

// Default configuration values.
const (
	DefaultModel   = string(gopenai.SmallEmbedding3)
	DefaultTimeout = 60 * time.Second
)

// Known vector sizes per model, used when the config does not override.
var modelDimensions = map[string]int{
	string(gopenai.SmallEmbedding3): 1536,
	string(gopenai.LargeEmbedding3): 3072,
	string(gopenai.AdaEmbeddingV2):  1536,
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL overrides the API base URL for Azure or compatible gateways.
	BaseURL string

	// Model is the embedding model (default: text-embedding-3-small).
	Model string

	// Dimensions overrides the model's native vector size. Only honoured by
	// text-embedding-3-* models.
	Dimensions int

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration
}

// Provider generates embeddings through the OpenAI embeddings endpoint.
type Provider struct {
	client     *gopenai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// New creates an OpenAI embedding provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		var ok bool
		if dimensions, ok = modelDimensions[cfg.Model]; !ok {
			dimensions = 1536
		}
	}

	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:     gopenai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: dimensions,
		timeout:    cfg.Timeout,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("openai: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := gopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: gopenai.EmbeddingModel(p.model),
	}
	if p.dimensionsConfigurable() {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// ModelName returns the model identifier recorded alongside vectors.
func (p *Provider) ModelName() string {
	return p.model
}

// Ping validates the API key with a models listing, no inference involved.
func (p *Provider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// dimensionsConfigurable reports whether the model accepts a dimensions
// override.
func (p *Provider) dimensionsConfigurable() bool {
	return p.model == string(gopenai.SmallEmbedding3) || p.model == string(gopenai.LargeEmbedding3)
}
