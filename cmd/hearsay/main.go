// Command hearsay is the transcript retrieval CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	memorycache "github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/cache/memory"
	sqlitecache "github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/cache/sqlite"
	configfile "github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/config/file"
	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/embedding/ollama"
	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/embedding/openai"
	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/transcript/whisper"
	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driving/cli"
	"github.com/hearsay-labs/hearsay-cli/internal/cache"
	"github.com/hearsay-labs/hearsay-cli/internal/chunker"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/core/services"
	"github.com/hearsay-labs/hearsay-cli/internal/index"
	"github.com/hearsay-labs/hearsay-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	configStore, err := configfile.NewConfigStore(os.Getenv("HEARSAY_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Pick up config edits made while a long process run is in flight.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go func() {
		if err := configStore.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			logger.Warn("Config watch stopped: %v", err)
		}
	}()

	fast := memorycache.NewTier()
	durable, err := sqlitecache.NewTier(configStore.GetString("data_dir"))
	if err != nil {
		return fmt.Errorf("open cache database: %w", err)
	}

	cacheManager := cache.NewManager(fast, durable)
	defer cacheManager.Close()

	embedder, err := newEmbedder(configStore)
	if err != nil {
		return err
	}
	defer embedder.Close()

	chunkerOpts := []chunker.Option{}
	if size := configStore.GetInt("chunk_target_size"); size > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithTargetSize(size))
	}
	if overlap := configStore.GetInt("chunk_overlap"); overlap > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithOverlap(overlap))
	}
	if counter, err := chunker.NewTikTokenCounter(); err == nil {
		chunkerOpts = append(chunkerOpts, chunker.WithTokenCounter(counter))
	} else {
		logger.Warn("Token encoding unavailable, using heuristic counter: %v", err)
	}

	indexOpts := []index.ManagerOption{}
	if ttl := configStore.GetInt("cache_ttl_embedding"); ttl > 0 {
		indexOpts = append(indexOpts, index.WithEmbeddingTTL(time.Duration(ttl)*time.Second))
	}
	indexes := index.NewManager(embedder, cacheManager, indexOpts...)

	engineOpts := []services.EngineOption{}
	if ttl := configStore.GetInt("cache_ttl_query"); ttl > 0 {
		engineOpts = append(engineOpts, services.WithQueryTTL(time.Duration(ttl)*time.Second))
	}
	if ttl := configStore.GetInt("cache_ttl_transcript"); ttl > 0 {
		engineOpts = append(engineOpts, services.WithTranscriptTTL(time.Duration(ttl)*time.Second))
	}
	if k := configStore.GetInt("top_k_default"); k > 0 {
		engineOpts = append(engineOpts, services.WithDefaultTopK(k))
	}
	if transcriber, err := newTranscriber(configStore); err == nil {
		engineOpts = append(engineOpts, services.WithTranscriber(transcriber))
	} else {
		logger.Debug("Transcription disabled: %v", err)
	}

	engine := services.NewEngine(chunker.New(chunkerOpts...), indexes, cacheManager, engineOpts...)

	cli.SetEngine(engine)
	cli.SetConfigStore(configStore)
	return cli.Execute()
}

// newEmbedder builds the embedding service selected by configuration.
// The provider defaults to openai; ollama needs no API key and suits
// offline use.
func newEmbedder(configStore driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := configStore.GetString("embedding.provider")
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey(configStore),
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		})
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (expected openai or ollama)", provider)
	}
}

func newTranscriber(configStore driven.ConfigStore) (driven.Transcriber, error) {
	return whisper.NewTranscriber(whisper.Config{
		APIKey: apiKey(configStore),
		Model:  configStore.GetString("transcription.model"),
	})
}

func apiKey(configStore driven.ConfigStore) string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return configStore.GetString("openai.api_key")
}
