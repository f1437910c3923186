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
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/cli"
	"horse.fit/newsradar/internal/config"
	"horse.fit/newsradar/internal/feed"
	"horse.fit/newsradar/internal/globaltime"
	"horse.fit/newsradar/internal/news"
	"horse.fit/newsradar/internal/pipeline"
	"horse.fit/newsradar/internal/results"
	"horse.fit/newsradar/internal/store"
	payloadschema "horse.fit/newsradar/schema"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	inputPath := fs.String("input", "", "Process items from this JSON file instead of collecting feeds")
	feedsFile := fs.String("feeds", "", "Feeds file (overrides FEEDS_FILE)")
	resultsDir := fs.String("results-dir", "", "Results directory (overrides RESULTS_DIR)")
	noArchive := fs.Bool("no-archive", false, "Skip the database archive even when DATABASE_URL is set")

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
	if *resultsDir != "" {
		cfg.ResultsDir = *resultsDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var items []news.Item
	if *inputPath != "" {
		items, err = loadInputItems(*inputPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load input: %v\n", err)
			return 1
		}
	} else {
		sources, loadErr := feed.LoadSources(cfg.FeedsFile)
		if loadErr != nil {
			logger.Error().Err(loadErr).Str("path", cfg.FeedsFile).Msg("load feed sources failed")
			fmt.Fprintf(os.Stderr, "Failed to load feeds: %v\n", loadErr)
			return 1
		}
		collector := feed.NewCollector(sources, feed.CollectorOptions{
			Window:      cfg.FeedWindow,
			Timeout:     cfg.FeedTimeout,
			Concurrency: cfg.FeedConcurrency,
		}, logger)
		items, err = collector.Collect(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("feed collection failed")
			fmt.Fprintf(os.Stderr, "Collection failed: %v\n", err)
			return 1
		}
	}

	if len(items) == 0 {
		logger.Info().Msg("no items to process")
		fmt.Println("No items to process.")
		return 0
	}

	service, scheduler := buildPipeline(cfg, logger)
	defer scheduler.Close()

	startedAt := globaltime.UTC()
	result, err := service.Run(ctx, items)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	path, err := results.Write(cfg.ResultsDir, result.Items)
	if err != nil {
		logger.Error().Err(err).Msg("write results failed")
		fmt.Fprintf(os.Stderr, "Failed to write results: %v\n", err)
		return 1
	}

	if cfg.ArchiveEnabled() && !*noArchive {
		if err := archiveRun(ctx, cfg, logger, startedAt, result); err != nil {
			logger.Error().Err(err).Msg("archive run failed")
			fmt.Fprintf(os.Stderr, "Warning: run archive failed: %v\n", err)
		}
	}

	fmt.Printf("Processed %d items: %d unique, %d duplicates removed, %d locations found.\n",
		result.Counters.Input,
		len(result.Items),
		result.Counters.DuplicatesRemoved,
		result.Counters.LocationsFound,
	)
	fmt.Printf("Results written to %s\n", path)
	return 0
}

// loadInputItems reads a JSON array of raw items, validating each payload
// independently. Malformed entries are logged and skipped; only a file that
// cannot be read or parsed as an array fails the run.
func loadInputItems(path string, logger zerolog.Logger) ([]news.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", path, err)
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("input file %s must contain a JSON array: %w", path, err)
	}

	items := make([]news.Item, 0, len(payloads))
	rejected := 0
	for i, payload := range payloads {
		raw, err := payloadschema.ValidateRawItem(payload)
		if err != nil {
			rejected++
			logger.Warn().Err(err).Int("index", i).Msg("rejecting malformed input item")
			continue
		}
		item, err := raw.ToNewsItem()
		if err != nil {
			rejected++
			logger.Warn().Err(err).Int("index", i).Msg("rejecting input item")
			continue
		}
		items = append(items, item)
	}

	logger.Info().
		Int("accepted", len(items)).
		Int("rejected", rejected).
		Str("path", path).
		Msg("input items loaded")
	return items, nil
}

func archiveRun(ctx context.Context, cfg *config.Config, logger zerolog.Logger, startedAt time.Time, result pipeline.Result) error {
	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	defer poolCancel()

	pool, err := store.NewPool(poolCtx, store.Options{
		DatabaseURL: cfg.DatabaseURL,
		MinConns:    cfg.DBMinConns,
		MaxConns:    cfg.DBMaxConns,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("connect archive database: %w", err)
	}
	defer pool.Close()

	runID, err := store.NewArchive(pool).SaveRun(ctx, startedAt, result)
	if err != nil {
		return err
	}
	logger.Info().Int64("run_id", runID).Msg("run archived")
	return nil
}
