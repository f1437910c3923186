package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingEndpoint = "http://127.0.0.1:8844/embed"
	DefaultEmbeddingModel    = "bert-base-uncased"
	DefaultBatchSize         = 8
	DefaultMaxChars          = 1900
	DefaultRequestTimeout    = 45 * time.Second
)

// Embedder turns a batch of texts into one dense vector per text. The
// returned slice is index-aligned with the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// HTTPEmbedder calls a local embedding service speaking either the
// {"texts": [...]} -> {"embeddings": [[...]]} contract or the OpenAI
// /v1/embeddings response shape.
type HTTPEmbedder struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

type embedRequest struct {
	Texts []string `json:"texts,omitempty"`
	Input []string `json:"input,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func NewHTTPEmbedder(endpoint string, timeout time.Duration) *HTTPEmbedder {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPEmbedder{
		endpoint: normalizeEmbeddingEndpoint(endpoint),
		timeout:  timeout,
		client:   http.DefaultClient,
	}
}

func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embedRequest{Texts: texts}
	if parsed, err := url.Parse(e.endpoint); err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings") {
		payload = embedRequest{Input: texts}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}
	return vectors, nil
}

func normalizeEmbeddingEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultEmbeddingEndpoint
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/embed"
	}
	return parsed.String()
}

// OpenAIEmbedder embeds through an OpenAI-compatible API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(apiKey, baseURL, model string) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientConfig.BaseURL = strings.TrimSpace(baseURL)
	}
	if strings.TrimSpace(model) == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(resp.Data))
	}

	vectors := make([][]float64, len(resp.Data))
	for _, row := range resp.Data {
		if row.Index < 0 || row.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", row.Index)
		}
		vec := make([]float64, len(row.Embedding))
		for i, v := range row.Embedding {
			vec[i] = float64(v)
		}
		vectors[row.Index] = vec
	}
	return vectors, nil
}

// Generator prepares embedding inputs and batches calls to an Embedder.
// A failed batch excludes only its own items: their vectors stay nil and the
// items pass through deduplication kept as unique.
type Generator struct {
	embedder  Embedder
	batchSize int
	maxChars  int
	logger    zerolog.Logger
}

func NewGenerator(embedder Embedder, batchSize, maxChars int, logger zerolog.Logger) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Generator{
		embedder:  embedder,
		batchSize: batchSize,
		maxChars:  maxChars,
		logger:    logger,
	}
}

// EmbedTexts returns one vector per text, nil for texts whose batch failed.
// Batching never changes per-item output: each text is embedded exactly as
// prepared, independent of its neighbors.
func (g *Generator) EmbedTexts(ctx context.Context, texts []string) [][]float64 {
	vectors := make([][]float64, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		batch := make([]string, 0, end-start)
		for _, text := range texts[start:end] {
			batch = append(batch, truncateChars(text, g.maxChars))
		}

		batchVectors, err := g.embedder.Embed(ctx, batch)
		if err != nil {
			g.logger.Warn().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("embedding batch failed; items kept as unique")
			continue
		}
		for i, vec := range batchVectors {
			vectors[start+i] = vec
		}
	}

	return vectors
}

func truncateChars(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
