package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadInputItemsSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	payload := `[
		{
			"source": "BBC",
			"title": "Valid story",
			"link": "https://example.com/valid",
			"published": "2026-08-20T14:30:00Z",
			"summary": "ok"
		},
		{
			"source": "BBC",
			"title": "Missing link",
			"published": "2026-08-20T14:30:00Z",
			"summary": "bad"
		},
		{
			"source": "BBC",
			"title": "Bad timestamp",
			"link": "https://example.com/bad-time",
			"published": "not-a-time",
			"summary": "bad"
		}
	]`

	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	items, err := loadInputItems(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 accepted item, got %d", len(items))
	}
	if items[0].Link != "https://example.com/valid" {
		t.Fatalf("unexpected accepted item: %+v", items[0])
	}
}

func TestLoadInputItemsRejectsNonArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "input.json")
	if err := os.WriteFile(path, []byte(`{"source":"BBC"}`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if _, err := loadInputItems(path, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for non-array input")
	}
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.json")
	payload := `[
		{
			"source": "BBC",
			"title": "Valid story",
			"link": "https://example.com/valid",
			"published": "2026-08-20T14:30:00Z",
			"summary": "ok"
		},
		{"source": "BBC"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	valid, total, err := validateFile(path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if valid != 1 || total != 2 {
		t.Fatalf("expected 1/2 valid, got %d/%d", valid, total)
	}
}
