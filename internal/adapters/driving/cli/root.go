// Package cli implements the corpus command-line interface. Commands are
// thin shells over the core services; wiring happens once in the root
// command's PersistentPreRunE.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/tessera-labs/corpus-cli/internal/adapters/driven/config/file"
	"github.com/tessera-labs/corpus-cli/internal/adapters/driven/embedding/ollama"
	"github.com/tessera-labs/corpus-cli/internal/adapters/driven/embedding/openai"
	"github.com/tessera-labs/corpus-cli/internal/adapters/driven/storage/sqlite"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driving"
	"github.com/tessera-labs/corpus-cli/internal/core/services"
	"github.com/tessera-labs/corpus-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Flags shared by every command.
var (
	flagVerbose   bool
	flagDataDir   string
	flagConfigDir string
)

// Wired services, populated in setup.
var (
	appConfig     *configfile.Config
	store         *sqlite.Store
	embedder      driven.EmbeddingService
	ingestService driving.IngestService
	searchService driving.SearchService
	embedWorker   driving.EmbeddingWorker
)

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Local document store and hybrid retrieval engine",
	Long: `corpus ingests documents from personal data sources into a local
SQLite store and answers queries by fusing BM25 keyword search with
semantic similarity over chunk embeddings. Everything lives on-device.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "database directory (default ~/.corpus/data)")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.corpus)")
}

// setup wires adapters and services for the invoked command.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	// version needs no store or provider.
	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := configfile.Load(flagConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = cfg.Store().DataDir
	}

	s, err := sqlite.NewStore(dataDir, sqlite.WithLockTimeout(cfg.LockTimeout()))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	store = s

	embedder = buildEmbedder(cfg.Embedding())

	ingestService = services.NewIngestService(store, cfg)
	searchService = services.NewSearchService(store, embedder, cfg)

	var workerOpts []services.WorkerOption
	if rps := cfg.Embedding().RatePerSecond; rps > 0 {
		workerOpts = append(workerOpts, services.WithRateLimit(rps))
	}
	embedWorker = services.NewEmbeddingWorker(store, embedder, workerOpts...)

	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if embedder != nil {
		_ = embedder.Close()
	}
	if store != nil {
		_ = store.Close()
	}
}

// buildEmbedder selects the embedding provider from config. A provider that
// cannot be constructed leaves semantic search disabled rather than failing
// the command; lexical search needs no provider.
func buildEmbedder(cfg configfile.EmbeddingSettings) driven.EmbeddingService {
	switch cfg.Provider {
	case "none":
		return nil

	case "openai":
		apiKey := ""
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		provider, err := openai.New(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			logger.Warn("OpenAI embedding provider unavailable: %v", err)
			return nil
		}
		return provider

	default:
		return ollama.New(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	}
}
