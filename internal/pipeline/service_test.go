package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/dedup"
	"horse.fit/newsradar/internal/fetcher"
	"horse.fit/newsradar/internal/location"
	"horse.fit/newsradar/internal/news"
)

type mappedEmbedder struct {
	vectors map[string][]float64
}

func (m *mappedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := m.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no scripted vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

type staticTagger struct {
	entities []location.Entity
	err      error
}

func (s *staticTagger) Entities(context.Context, string) ([]location.Entity, error) {
	return s.entities, s.err
}

func newArticleServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "article body for %s", r.URL.Path)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T, embedder dedup.Embedder, tagger location.Tagger) *Service {
	t.Helper()

	generator := dedup.NewGenerator(embedder, 8, 1900, zerolog.Nop())
	scheduler := fetcher.NewScheduler(fetcher.SchedulerOptions{
		FirstPassTimeout: 500 * time.Millisecond,
		RetryTimeout:     time.Second,
		Concurrency:      4,
	}, zerolog.Nop())
	t.Cleanup(scheduler.Close)
	extractor := location.NewExtractor(tagger, 500)

	return NewService(Options{
		SimilarityThreshold: 0.85,
		NumHashes:           20,
		LSHSeed:             48,
	}, generator, scheduler, extractor, zerolog.Nop())
}

func TestRunFullPipeline(t *testing.T) {
	t.Parallel()

	server := newArticleServer(t)
	items := []news.Item{
		{Source: "wire", Title: "Storm hits coast", Summary: "Winds rise.", Link: server.URL + "/a"},
		{Source: "mirror", Title: "Storm hits the coast", Summary: "Winds rising.", Link: server.URL + "/b"},
		{Source: "biz", Title: "Rates decision due", Summary: "Banks wait.", Link: server.URL + "/c"},
	}

	embedder := &mappedEmbedder{vectors: map[string][]float64{
		items[0].EmbeddingText(): {1, 0.01},
		items[1].EmbeddingText(): {1, 0.02},
		items[2].EmbeddingText(): {0.01, 1},
	}}
	tagger := &staticTagger{entities: []location.Entity{
		{Text: "London", Label: "GPE", Start: 5},
	}}

	service := newTestService(t, embedder, tagger)
	result, err := service.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Counters.Input != 3 {
		t.Fatalf("unexpected input count: %d", result.Counters.Input)
	}
	if result.Counters.DuplicatesRemoved != 1 || result.Counters.DuplicateClusters != 1 {
		t.Fatalf("unexpected dedup counters: %+v", result.Counters)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 output items, got %d", len(result.Items))
	}
	if result.Items[0].Link != items[0].Link {
		t.Fatalf("expected first-seen representative, got %q", result.Items[0].Link)
	}
	if result.Counters.Pass1Successes != 2 {
		t.Fatalf("expected both survivors fetched in pass 1, got %d", result.Counters.Pass1Successes)
	}
	for i, item := range result.Items {
		if item.Article == "" {
			t.Fatalf("item %d missing article text", i)
		}
		if item.Location != "London" {
			t.Fatalf("item %d missing location, got %q", i, item.Location)
		}
	}
	if result.Counters.LocationsFound != 2 {
		t.Fatalf("unexpected locations found: %d", result.Counters.LocationsFound)
	}
	if result.Timings.Total <= 0 {
		t.Fatalf("total timing not recorded")
	}
}

func TestRunCountsExtractionErrors(t *testing.T) {
	t.Parallel()

	server := newArticleServer(t)
	items := []news.Item{
		{Source: "wire", Title: "Solo story", Summary: "Only one.", Link: server.URL + "/solo"},
	}

	embedder := &mappedEmbedder{vectors: map[string][]float64{
		items[0].EmbeddingText(): {1, 0.5},
	}}
	tagger := &staticTagger{err: fmt.Errorf("ner down")}

	service := newTestService(t, embedder, tagger)
	result, err := service.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Counters.ExtractionErrors != 1 {
		t.Fatalf("expected 1 extraction error, got %d", result.Counters.ExtractionErrors)
	}
	if len(result.Items) != 1 || result.Items[0].Location != "" {
		t.Fatalf("item must survive with empty location: %+v", result.Items)
	}
}

func TestRunKeepsPresetLocations(t *testing.T) {
	t.Parallel()

	server := newArticleServer(t)
	items := []news.Item{
		{Source: "wire", Title: "Tagged story", Summary: "Already placed.", Link: server.URL + "/tagged", Location: "Madrid"},
	}

	embedder := &mappedEmbedder{vectors: map[string][]float64{
		items[0].EmbeddingText(): {1, 0.5},
	}}
	tagger := &staticTagger{entities: []location.Entity{{Text: "London", Label: "GPE"}}}

	service := newTestService(t, embedder, tagger)
	result, err := service.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Items[0].Location != "Madrid" {
		t.Fatalf("preset location overwritten: %q", result.Items[0].Location)
	}
	if result.Counters.LocationsFound != 1 {
		t.Fatalf("preset location should count as found, got %d", result.Counters.LocationsFound)
	}
}

func TestRunEmptyInput(t *testing.T) {
	t.Parallel()

	embedder := &mappedEmbedder{vectors: map[string][]float64{}}
	tagger := &staticTagger{}
	service := newTestService(t, embedder, tagger)

	result, err := service.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Counters.Input != 0 || len(result.Items) != 0 {
		t.Fatalf("unexpected result for empty input: %+v", result)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &mappedEmbedder{vectors: map[string][]float64{
		"Title Summary": {1, 0},
	}}
	service := newTestService(t, embedder, &staticTagger{})

	items := []news.Item{{Source: "wire", Title: "Title", Summary: "Summary", Link: "https://example.com/x"}}
	if _, err := service.Run(ctx, items); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
