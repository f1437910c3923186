package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/dedup"
	"horse.fit/newsradar/internal/fetcher"
	"horse.fit/newsradar/internal/location"
	"horse.fit/newsradar/internal/news"
)

// Counters are the run statistics exposed to reporting collaborators.
type Counters struct {
	Input             int `json:"input"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	DuplicateClusters int `json:"duplicate_clusters"`
	Pass1Successes    int `json:"pass1_successes"`
	Pass2Successes    int `json:"pass2_successes"`
	FetchFailures     int `json:"fetch_failures"`
	LocationsFound    int `json:"locations_found"`
	ExtractionErrors  int `json:"extraction_errors"`
}

// Timings record per-stage wall time for the performance report.
type Timings struct {
	Embed   time.Duration `json:"embed"`
	Dedup   time.Duration `json:"dedup"`
	Fetch   time.Duration `json:"fetch"`
	Extract time.Duration `json:"extract"`
	Total   time.Duration `json:"total"`
}

// Result is one completed pipeline run.
type Result struct {
	Items    []news.Item `json:"items"`
	Counters Counters    `json:"counters"`
	Timings  Timings     `json:"timings"`
}

// Options hold the deduplication tunables the service applies per run.
type Options struct {
	SimilarityThreshold float64
	NumHashes           int
	LSHSeed             int64
}

// Service sequences the pipeline stages: embed, bucket, deduplicate, fetch
// in two passes, extract locations, assemble. A failure on one item never
// stops the others; only a cancelled context aborts the run.
type Service struct {
	opts      Options
	generator *dedup.Generator
	scheduler *fetcher.Scheduler
	extractor *location.Extractor
	logger    zerolog.Logger
}

func NewService(
	opts Options,
	generator *dedup.Generator,
	scheduler *fetcher.Scheduler,
	extractor *location.Extractor,
	logger zerolog.Logger,
) *Service {
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = dedup.DefaultSimilarityThreshold
	}
	if opts.NumHashes < 1 {
		opts.NumHashes = 20
	}
	return &Service{
		opts:      opts,
		generator: generator,
		scheduler: scheduler,
		extractor: extractor,
		logger:    logger,
	}
}

// Run processes raw items into deduplicated, location-enriched items.
func (s *Service) Run(ctx context.Context, items []news.Item) (Result, error) {
	if s == nil || s.generator == nil || s.scheduler == nil || s.extractor == nil {
		return Result{}, fmt.Errorf("pipeline service is not initialized")
	}

	totalStart := time.Now()
	result := Result{Counters: Counters{Input: len(items)}}
	if len(items) == 0 {
		return result, nil
	}

	embedStart := time.Now()
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.EmbeddingText()
	}
	vectors := s.generator.EmbedTexts(ctx, texts)
	result.Timings.Embed = time.Since(embedStart)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	dedupStart := time.Now()
	survivors := items
	if dims := firstVectorDims(vectors); dims > 0 {
		// One projection basis for the whole run; regenerating it between
		// items would silently break bucket membership.
		basis := dedup.NewBasis(s.opts.NumHashes, dims, s.opts.LSHSeed)
		dedupResult := dedup.NewDeduplicator(basis, s.opts.SimilarityThreshold).Run(items, vectors)
		survivors = dedupResult.Unique
		result.Counters.DuplicatesRemoved = dedupResult.Removed
		result.Counters.DuplicateClusters = dedupResult.Clusters
	} else {
		s.logger.Warn().Msg("no usable embeddings; skipping deduplication")
	}
	result.Timings.Dedup = time.Since(dedupStart)
	s.logger.Info().
		Int("input", len(items)).
		Int("unique", len(survivors)).
		Int("removed", result.Counters.DuplicatesRemoved).
		Dur("embed", result.Timings.Embed).
		Dur("dedup", result.Timings.Dedup).
		Msg("deduplication finished")
	if err := ctx.Err(); err != nil {
		return result, err
	}

	fetchStart := time.Now()
	fetchResult := s.scheduler.FetchAll(ctx, survivors)
	result.Timings.Fetch = time.Since(fetchStart)
	result.Counters.Pass1Successes = fetchResult.Pass1.Succeeded
	result.Counters.Pass2Successes = fetchResult.Pass2.Succeeded
	result.Counters.FetchFailures = fetchResult.Pass2.TimedOut + fetchResult.Pass2.Failed
	s.logger.Info().
		Int("pass1_attempted", fetchResult.Pass1.Attempted).
		Int("pass1_succeeded", fetchResult.Pass1.Succeeded).
		Int("pass2_attempted", fetchResult.Pass2.Attempted).
		Int("pass2_succeeded", fetchResult.Pass2.Succeeded).
		Dur("elapsed", result.Timings.Fetch).
		Msg("article fetching finished")
	if err := ctx.Err(); err != nil {
		return result, err
	}

	extractStart := time.Now()
	for i := range survivors {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if survivors[i].Location != "" {
			result.Counters.LocationsFound++
			continue
		}
		loc, err := s.extractor.Extract(ctx, survivors[i].ExtractionText(), survivors[i].Language)
		if err != nil {
			result.Counters.ExtractionErrors++
			s.logger.Warn().
				Err(err).
				Str("link", survivors[i].Link).
				Msg("location extraction failed; leaving location unset")
			continue
		}
		if loc != "" {
			survivors[i].Location = loc
			result.Counters.LocationsFound++
		}
	}
	result.Timings.Extract = time.Since(extractStart)

	result.Items = survivors
	result.Timings.Total = time.Since(totalStart)

	s.logger.Info().
		Int("input", result.Counters.Input).
		Int("output", len(result.Items)).
		Int("duplicates_removed", result.Counters.DuplicatesRemoved).
		Int("locations_found", result.Counters.LocationsFound).
		Dur("embed", result.Timings.Embed).
		Dur("dedup", result.Timings.Dedup).
		Dur("fetch", result.Timings.Fetch).
		Dur("extract", result.Timings.Extract).
		Dur("total", result.Timings.Total).
		Msg("pipeline run finished")

	return result, nil
}

func firstVectorDims(vectors [][]float64) int {
	for _, vec := range vectors {
		if len(vec) > 0 {
			return len(vec)
		}
	}
	return 0
}
