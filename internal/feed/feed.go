package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/globaltime"
	"horse.fit/newsradar/internal/langdetect"
	"horse.fit/newsradar/internal/news"
)

const (
	DefaultWindow      = time.Hour
	DefaultTimeout     = 8 * time.Second
	DefaultConcurrency = 10
)

// Source is one configured news provider with its RSS/Atom feed URLs.
type Source struct {
	Name  string            `json:"source"`
	Feeds map[string]string `json:"rss_feeds"`
}

// LoadSources reads the feed-source configuration file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file %s: %w", path, err)
	}
	var sources []Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse feeds file %s: %w", path, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("feeds file %s lists no sources", path)
	}
	return sources, nil
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
}

// Collector retrieves configured feeds concurrently and converts recent
// entries into pipeline items.
type Collector struct {
	sources     []Source
	window      time.Duration
	timeout     time.Duration
	concurrency int
	client      *http.Client
	logger      zerolog.Logger
}

type CollectorOptions struct {
	Window      time.Duration
	Timeout     time.Duration
	Concurrency int
}

func NewCollector(sources []Source, opts CollectorOptions, logger zerolog.Logger) *Collector {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Collector{
		sources:     sources,
		window:      window,
		timeout:     timeout,
		concurrency: concurrency,
		client:      &http.Client{},
		logger:      logger,
	}
}

type feedTask struct {
	sourceName string
	feedURL    string
}

// Collect fetches every configured feed and returns items published within
// the recency window. A failing feed only loses its own entries; item order
// follows the configuration order of sources and feed names.
func (c *Collector) Collect(ctx context.Context) ([]news.Item, error) {
	var tasks []feedTask
	for _, source := range c.sources {
		names := make([]string, 0, len(source.Feeds))
		for name := range source.Feeds {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tasks = append(tasks, feedTask{sourceName: source.Name, feedURL: source.Feeds[name]})
		}
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no feed URLs configured")
	}

	now := globaltime.UTC()
	collected := make([][]news.Item, len(tasks))

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task feedTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			parsed, err := c.fetchFeed(ctx, task, i)
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("source", task.sourceName).
					Str("feed_url", task.feedURL).
					Msg("feed fetch failed; skipping")
				return
			}
			collected[i] = c.recentItems(task.sourceName, parsed, now)
		}(i, task)
	}
	wg.Wait()

	var items []news.Item
	for _, group := range collected {
		items = append(items, group...)
	}

	c.logger.Info().
		Int("feeds", len(tasks)).
		Int("items", len(items)).
		Dur("window", c.window).
		Msg("feed collection finished")
	return items, nil
}

// fetchFeed retrieves and parses one feed, retrying once on a bad status or
// timeout.
func (c *Collector) fetchFeed(ctx context.Context, task feedTask, taskIndex int) (*gofeed.Feed, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		parsed, err := c.fetchFeedOnce(ctx, task, taskIndex)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == 1 {
			c.logger.Debug().
				Err(err).
				Str("feed_url", task.feedURL).
				Msg("retrying feed after failure")
			time.Sleep(time.Second)
		}
	}
	return nil, lastErr
}

func (c *Collector) fetchFeedOnce(ctx context.Context, task feedTask, taskIndex int) (*gofeed.Feed, error) {
	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, task.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[taskIndex%len(userAgents)])
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

// recentItems converts feed entries published within the window. Entries
// without a usable timestamp are kept with the collection time.
func (c *Collector) recentItems(sourceName string, parsed *gofeed.Feed, now time.Time) []news.Item {
	var items []news.Item
	for _, entry := range parsed.Items {
		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		} else {
			c.logger.Debug().
				Str("source", sourceName).
				Str("title", entry.Title).
				Msg("feed entry has no timestamp; using collection time")
		}

		if now.Sub(published) > c.window {
			continue
		}

		summary := entry.Description
		if strings.TrimSpace(summary) == "" {
			summary = entry.Content
		}
		summary = StripHTML(summary)

		item := news.Item{
			Source:    sourceName,
			Title:     strings.TrimSpace(entry.Title),
			Link:      strings.TrimSpace(entry.Link),
			Published: published,
			Summary:   summary,
		}
		if err := item.Validate(); err != nil {
			c.logger.Warn().
				Err(err).
				Str("source", sourceName).
				Msg("rejecting malformed feed entry")
			continue
		}
		item.Language = langdetect.DetectISO6391(item.Title + " " + item.Summary)
		items = append(items, item)
	}
	return items
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML drops markup from feed summaries and collapses whitespace.
func StripHTML(raw string) string {
	cleaned := tagPattern.ReplaceAllString(raw, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
