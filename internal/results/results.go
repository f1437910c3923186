package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"horse.fit/newsradar/internal/globaltime"
	"horse.fit/newsradar/internal/news"
)

const filePrefix = "processed_news_"

// Write persists enriched items as a timestamped JSON file in dir and
// returns the file path. The directory is created when missing.
func Write(dir string, items []news.Item) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("results directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory %s: %w", dir, err)
	}

	stamp := globaltime.UTC().Format("20060102_150405")
	path := filepath.Join(dir, filePrefix+stamp+".json")

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results file %s: %w", path, err)
	}
	return path, nil
}

// LatestFile returns the newest results file in dir, by the timestamp baked
// into the file name.
func LatestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read results directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no results files in %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// ReadItems loads one results file.
func ReadItems(path string) ([]news.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file %s: %w", path, err)
	}
	var items []news.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse results file %s: %w", path, err)
	}
	return items, nil
}
