package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultNEREndpoint    = "http://127.0.0.1:8855/ner"
	DefaultRequestTimeout = 10 * time.Second
)

// Entity is one tagged span returned by the named-entity tagger, in
// document order.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
}

// Tagger runs named-entity recognition over text and returns entities in
// document order.
type Tagger interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// HTTPTagger calls a remote NER service. The service is loaded with only the
// entity-tagging components enabled; requesting the "ner" feature here is
// validated against that enabled set at model-load time on the service side.
type HTTPTagger struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

type nerRequest struct {
	Text     string   `json:"text"`
	Features []string `json:"features,omitempty"`
}

type nerResponse struct {
	Entities []Entity `json:"entities"`
}

func NewHTTPTagger(endpoint string, timeout time.Duration) *HTTPTagger {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultNEREndpoint
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPTagger{
		endpoint: trimmed,
		timeout:  timeout,
		client:   http.DefaultClient,
	}
}

func (t *HTTPTagger) Entities(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(nerRequest{
		Text:     text,
		Features: []string{"ner"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ner response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ner service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed nerResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	return parsed.Entities, nil
}
