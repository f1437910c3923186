package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/cli"
	"horse.fit/newsradar/internal/config"
	"horse.fit/newsradar/internal/dedup"
	"horse.fit/newsradar/internal/fetcher"
	"horse.fit/newsradar/internal/location"
	"horse.fit/newsradar/internal/logging"
	"horse.fit/newsradar/internal/pipeline"
)

func bootstrap(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("initialize logger: %w", err)
	}

	return cfg, logger, nil
}

// buildPipeline wires the embedding, fetching and extraction collaborators.
// The returned scheduler owns a connection pool; callers must Close it.
func buildPipeline(cfg *config.Config, logger zerolog.Logger) (*pipeline.Service, *fetcher.Scheduler) {
	var embedder dedup.Embedder
	switch cfg.EmbeddingProvider {
	case "openai":
		embedder = dedup.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	default:
		embedder = dedup.NewHTTPEmbedder(cfg.EmbeddingEndpoint, cfg.EmbeddingTimeout)
	}
	generator := dedup.NewGenerator(embedder, cfg.EmbeddingBatchSize, cfg.EmbeddingMaxChars, logger)

	scheduler := fetcher.NewScheduler(fetcher.SchedulerOptions{
		FirstPassTimeout: cfg.FirstPassTimeout,
		RetryTimeout:     cfg.RetryTimeout,
		Concurrency:      cfg.FetchConcurrency,
	}, logger)

	tagger := location.NewHTTPTagger(cfg.NEREndpoint, cfg.NERTimeout)
	extractor := location.NewExtractor(tagger, cfg.MaxTextLen)

	service := pipeline.NewService(pipeline.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		NumHashes:           cfg.NumHashes,
		LSHSeed:             cfg.LSHSeed,
	}, generator, scheduler, extractor, logger)

	return service, scheduler
}
