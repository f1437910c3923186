package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"horse.fit/newsradar/internal/cli"
	"horse.fit/newsradar/internal/feed"
)

func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	feedsFile := fs.String("feeds", "", "Feeds file (overrides FEEDS_FILE)")
	outPath := fs.String("out", "", "Write collected items to this file instead of stdout")

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
	if *feedsFile != "" {
		cfg.FeedsFile = *feedsFile
	}

	sources, err := feed.LoadSources(cfg.FeedsFile)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.FeedsFile).Msg("load feed sources failed")
		fmt.Fprintf(os.Stderr, "Failed to load feeds: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := feed.NewCollector(sources, feed.CollectorOptions{
		Window:      cfg.FeedWindow,
		Timeout:     cfg.FeedTimeout,
		Concurrency: cfg.FeedConcurrency,
	}, logger)

	items, err := collector.Collect(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("feed collection failed")
		fmt.Fprintf(os.Stderr, "Collection failed: %v\n", err)
		return 1
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode items: %v\n", err)
		return 1
	}

	if *outPath == "" {
		fmt.Println(string(data))
	} else {
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *outPath, err)
			return 1
		}
		fmt.Printf("Wrote %d items to %s\n", len(items), *outPath)
	}

	logger.Info().Int("items", len(items)).Int("sources", len(sources)).Msg("collection finished")
	return 0
}
