package results

import (
	"path/filepath"
	"testing"
	"time"

	"horse.fit/newsradar/internal/globaltime"
	"horse.fit/newsradar/internal/news"
)

func sampleItems() []news.Item {
	return []news.Item{
		{
			Source:    "wire",
			Title:     "headline one",
			Link:      "https://example.com/1",
			Published: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
			Summary:   "first summary",
			Location:  "Oslo",
		},
		{
			Source:    "wire",
			Title:     "headline two",
			Link:      "https://example.com/2",
			Published: time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC),
			Summary:   "second summary",
		},
	}
}

func TestWriteAndReadItems(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	dir := filepath.Join(t.TempDir(), "nested", "results")
	path, err := Write(dir, sampleItems())
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if filepath.Base(path) != "processed_news_20260820_120000.json" {
		t.Fatalf("unexpected file name: %s", filepath.Base(path))
	}

	items, err := ReadItems(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Location != "Oslo" || items[1].Location != "" {
		t.Fatalf("locations not preserved: %+v", items)
	}
}

func TestLatestFilePicksNewest(t *testing.T) {
	dir := t.TempDir()

	globaltime.SetMockTime(time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	if _, err := Write(dir, sampleItems()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	globaltime.SetMockTime(time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC))
	newest, err := Write(dir, sampleItems())
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	globaltime.ResetTime()

	latest, err := LatestFile(dir)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest != newest {
		t.Fatalf("expected %s, got %s", newest, latest)
	}
}

func TestLatestFileEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := LatestFile(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestWriteRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := Write("  ", sampleItems()); err == nil {
		t.Fatalf("expected error for blank directory")
	}
}
