package location

import (
	"context"
	"regexp"
	"strings"
)

const DefaultMaxTextLen = 500

// Geographic entity labels: geo-political entities (countries, cities,
// states) and physical locations.
var geoLabels = map[string]struct{}{
	"GPE": {},
	"LOC": {},
}

// Locations concentrate near the start of news copy, so only the leading
// MaxTextLen runes are analyzed; entities beyond that offset are never seen.
type Extractor struct {
	tagger     Tagger
	maxTextLen int
}

func NewExtractor(tagger Tagger, maxTextLen int) *Extractor {
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLen
	}
	return &Extractor{
		tagger:     tagger,
		maxTextLen: maxTextLen,
	}
}

// Patterns that often introduce a place name in news copy, used only when
// the tagger found no geographic entity and the text reads as English.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bin ([A-Z][a-z]+)`),
	regexp.MustCompile(`\bfrom ([A-Z][a-z]+)`),
	regexp.MustCompile(`\bat ([A-Z][a-z]+)`),
}

// Extract returns the first geographic entity in text, in document order.
// An empty result with a nil error means no location was found, which is a
// legitimate outcome, not a failure. language is the ISO 639-1 code of the
// text when known; the regex fallback only applies to English.
func (e *Extractor) Extract(ctx context.Context, text, language string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}

	truncated := truncateRunes(trimmed, e.maxTextLen)

	entities, err := e.tagger.Entities(ctx, truncated)
	if err != nil {
		return "", err
	}
	for _, entity := range entities {
		if _, ok := geoLabels[strings.ToUpper(entity.Label)]; ok {
			return entity.Text, nil
		}
	}

	if language == "" || language == "en" {
		for _, pattern := range fallbackPatterns {
			if match := pattern.FindStringSubmatch(truncated); match != nil {
				return match[1], nil
			}
		}
	}

	return "", nil
}

func truncateRunes(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
