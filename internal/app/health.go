package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsradar/internal/cli"
	"horse.fit/newsradar/internal/dedup"
	"horse.fit/newsradar/internal/location"
	"horse.fit/newsradar/internal/store"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-check timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := bootstrap(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %v\n", err)
		return 1
	}

	failures := 0

	if cfg.EmbeddingProvider == "http" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		embedder := dedup.NewHTTPEmbedder(cfg.EmbeddingEndpoint, *timeout)
		_, embedErr := embedder.Embed(ctx, []string{"health check"})
		cancel()
		if embedErr != nil {
			failures++
			logger.Error().Err(embedErr).Str("endpoint", cfg.EmbeddingEndpoint).Msg("embedding service unreachable")
			fmt.Printf("embedding: FAIL (%v)\n", embedErr)
		} else {
			fmt.Println("embedding: OK")
		}
	} else {
		fmt.Println("embedding: SKIPPED (provider is not http)")
	}

	{
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		tagger := location.NewHTTPTagger(cfg.NEREndpoint, *timeout)
		_, nerErr := tagger.Entities(ctx, "health check in London")
		cancel()
		if nerErr != nil {
			failures++
			logger.Error().Err(nerErr).Str("endpoint", cfg.NEREndpoint).Msg("ner service unreachable")
			fmt.Printf("ner: FAIL (%v)\n", nerErr)
		} else {
			fmt.Println("ner: OK")
		}
	}

	if cfg.ArchiveEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		pool, poolErr := store.NewPool(ctx, store.Options{
			DatabaseURL: cfg.DatabaseURL,
			MinConns:    cfg.DBMinConns,
			MaxConns:    cfg.DBMaxConns,
			LogLevel:    cfg.LogLevel,
			Environment: cfg.Environment,
		})
		cancel()
		if poolErr != nil {
			failures++
			logger.Error().Err(poolErr).Msg("database unreachable")
			fmt.Printf("database: FAIL (%v)\n", poolErr)
		} else {
			pool.Close()
			fmt.Println("database: OK")
		}
	} else {
		fmt.Println("database: SKIPPED (archive not configured)")
	}

	if failures > 0 {
		return 1
	}
	fmt.Println("All checks passed.")
	return 0
}
