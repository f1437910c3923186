package location

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeTagger struct {
	entities []Entity
	err      error
	lastText string
}

func (f *fakeTagger) Entities(_ context.Context, text string) ([]Entity, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

func TestExtractReturnsFirstGeoEntity(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{entities: []Entity{
		{Text: "Joe Biden", Label: "PERSON", Start: 0},
		{Text: "Washington", Label: "GPE", Start: 20},
		{Text: "Paris", Label: "GPE", Start: 40},
	}}
	extractor := NewExtractor(tagger, 500)

	got, err := extractor.Extract(context.Background(), "Joe Biden spoke in Washington before flying to Paris.", "en")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "Washington" {
		t.Fatalf("expected first geographic entity, got %q", got)
	}
}

func TestExtractAcceptsPhysicalLocations(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{entities: []Entity{
		{Text: "the Alps", Label: "LOC", Start: 10},
	}}
	extractor := NewExtractor(tagger, 500)

	got, err := extractor.Extract(context.Background(), "Snow fell over the Alps overnight.", "en")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "the Alps" {
		t.Fatalf("expected LOC entity, got %q", got)
	}
}

func TestExtractNoEntitiesIsNotAnError(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{}
	extractor := NewExtractor(tagger, 500)

	got, err := extractor.Extract(context.Background(), "Quarterly earnings beat expectations.", "de")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty location, got %q", got)
	}
}

func TestExtractTruncatesBeforeTagging(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{}
	extractor := NewExtractor(tagger, 50)

	text := strings.Repeat("a", 200) + " in London"
	if _, err := extractor.Extract(context.Background(), text, "de"); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len([]rune(tagger.lastText)) != 50 {
		t.Fatalf("tagger should see truncated text, got %d runes", len([]rune(tagger.lastText)))
	}
}

func TestExtractEnglishRegexFallback(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{}
	extractor := NewExtractor(tagger, 500)

	got, err := extractor.Extract(context.Background(), "Protests erupted in Madrid on Sunday.", "en")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "Madrid" {
		t.Fatalf("expected regex fallback to find Madrid, got %q", got)
	}
}

func TestExtractFallbackSkippedForOtherLanguages(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{}
	extractor := NewExtractor(tagger, 500)

	// "in Madrid" would match the English pattern, but the text is tagged
	// as Spanish so the fallback must not fire.
	got, err := extractor.Extract(context.Background(), "Las protestas in Madrid continuaron.", "es")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "" {
		t.Fatalf("fallback must not apply to non-English text, got %q", got)
	}
}

func TestExtractPropagatesTaggerError(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{err: fmt.Errorf("ner service down")}
	extractor := NewExtractor(tagger, 500)

	if _, err := extractor.Extract(context.Background(), "News from Berlin.", "en"); err == nil {
		t.Fatalf("expected tagger error to propagate")
	}
}

func TestExtractEmptyText(t *testing.T) {
	t.Parallel()

	tagger := &fakeTagger{entities: []Entity{{Text: "Oslo", Label: "GPE"}}}
	extractor := NewExtractor(tagger, 500)

	got, err := extractor.Extract(context.Background(), "   ", "en")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if got != "" {
		t.Fatalf("blank text should yield no location, got %q", got)
	}
	if tagger.lastText != "" {
		t.Fatalf("tagger should not be called for blank text")
	}
}
