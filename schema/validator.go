package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/newsradar/internal/news"
)

//go:embed news_item.schema.json
var newsItemSchemaJSON string

// RawItem is the boundary representation of one feed entry handed to the
// pipeline from a file or an upstream collector.
type RawItem struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Link      string  `json:"link"`
	Published string  `json:"published"`
	Summary   string  `json:"summary"`
	Location  *string `json:"location,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawItem checks one raw item payload against the v1 schema and
// returns the decoded item. A failure rejects only this payload; callers
// continue with the remaining items.
func ValidateRawItem(payload json.RawMessage) (*RawItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item RawItem
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

// ToNewsItem converts a validated raw item into the pipeline model.
func (r *RawItem) ToNewsItem() (news.Item, error) {
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Published))
	if err != nil {
		return news.Item{}, fmt.Errorf("published must be RFC3339: %w", err)
	}
	item := news.Item{
		Source:    strings.TrimSpace(r.Source),
		Title:     strings.TrimSpace(r.Title),
		Link:      strings.TrimSpace(r.Link),
		Published: published.UTC(),
		Summary:   r.Summary,
	}
	if r.Location != nil {
		item.Location = strings.TrimSpace(*r.Location)
	}
	return item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("news_item.schema.json", strings.NewReader(newsItemSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("news_item.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *RawItem) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if err := validateURI("link", item.Link); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(item.Published)); err != nil {
		return fmt.Errorf("published must be RFC3339: %w", err)
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", fieldName)
	}
	return nil
}
