package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperRadar/internal/config"
	"PaperRadar/internal/ports"
)

// EmbeddingClient talks to an OpenAI-compatible embeddings API.
type EmbeddingClient struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

var _ ports.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient builds an embedder from configuration.
func NewEmbeddingClient(cfg config.OpenAIConfig) *EmbeddingClient {
	return &EmbeddingClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		model:      cfg.EmbeddingModel,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed maps text to a fixed-length vector.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("embedding client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"input": text,
		"model": c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embeddings error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed response has no vector: %w", ErrParse)
	}

	vector := decoded.Data[0].Embedding
	if c.dimensions > 0 && len(vector) != c.dimensions {
		return nil, fmt.Errorf("unexpected vector length: got %d, want %d", len(vector), c.dimensions)
	}

	return vector, nil
}

// Model reports which model produced the vectors; vectors from different
// models are not comparable.
func (c *EmbeddingClient) Model() string {
	return c.model
}

// Dimensions reports the expected vector length, zero when unknown.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}
