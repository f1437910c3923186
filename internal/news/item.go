package news

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Item is one news entry flowing through the pipeline. Identity is the
// (Source, Link) pair; Article and Location are filled in by later stages.
type Item struct {
	Source    string
	Title     string
	Link      string
	Published time.Time
	Summary   string

	// Article holds the readable text of the linked page once the fetch
	// scheduler has retrieved it. Empty when both fetch passes failed.
	Article string

	// Location is the first geographic entity found in the item's text,
	// empty when none was found.
	Location string

	// Language is the detected ISO 639-1 code of title+summary, or "" when
	// detection was inconclusive.
	Language string
}

// Key returns the identity key of the item.
func (it Item) Key() string {
	return it.Source + "|" + it.Link
}

// EmbeddingText is the text the embedding model sees for this item.
func (it Item) EmbeddingText() string {
	title := strings.TrimSpace(it.Title)
	summary := strings.TrimSpace(it.Summary)
	switch {
	case title == "":
		return summary
	case summary == "":
		return title
	default:
		return title + " " + summary
	}
}

// ExtractionText is the text location extraction runs against: the fetched
// article when available, title+summary otherwise.
func (it Item) ExtractionText() string {
	if strings.TrimSpace(it.Article) != "" {
		return it.Article
	}
	title := strings.TrimSpace(it.Title)
	summary := strings.TrimSpace(it.Summary)
	if title == "" {
		return summary
	}
	if summary == "" {
		return title
	}
	return title + ". " + summary
}

// Validate checks the fields the pipeline cannot work without.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Source) == "" {
		return fmt.Errorf("item source is required")
	}
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("item title is required")
	}
	link := strings.TrimSpace(it.Link)
	if link == "" {
		return fmt.Errorf("item link is required")
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("item link %q is not an absolute URL", link)
	}
	return nil
}

type itemJSON struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Location  string `json:"location,omitempty"`
}

// MarshalJSON emits the boundary schema: RFC3339 published timestamp,
// location omitted when empty. Article text and language stay internal.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		Source:    it.Source,
		Title:     it.Title,
		Link:      it.Link,
		Published: it.Published.UTC().Format(time.RFC3339),
		Summary:   it.Summary,
		Location:  it.Location,
	})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.Published))
	if err != nil {
		return fmt.Errorf("parse published timestamp %q: %w", raw.Published, err)
	}
	it.Source = raw.Source
	it.Title = raw.Title
	it.Link = raw.Link
	it.Published = published.UTC()
	it.Summary = raw.Summary
	it.Location = raw.Location
	return nil
}
