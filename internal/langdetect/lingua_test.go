package langdetect

import "testing"

func TestDetectISO6391(t *testing.T) {
	t.Parallel()

	if got := DetectISO6391("The government announced new measures to support renewable energy projects across the country."); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := DetectISO6391("Die Regierung kündigte neue Maßnahmen zur Unterstützung erneuerbarer Energien an."); got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
}

func TestDetectISO6391ShortSamples(t *testing.T) {
	t.Parallel()

	if got := DetectISO6391(""); got != "" {
		t.Fatalf("empty text should be inconclusive, got %q", got)
	}
	if got := DetectISO6391("ab 12"); got != "" {
		t.Fatalf("too few letters should be inconclusive, got %q", got)
	}
}
