package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"PaperRadar/internal/config"
)

func embeddingTestServer(t *testing.T, vector []float64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var payload struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != "test-embed" {
			t.Errorf("unexpected model %q", payload.Model)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vector}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func embeddingTestClient(endpoint string, dims int) *EmbeddingClient {
	return NewEmbeddingClient(config.OpenAIConfig{
		Endpoint:       endpoint,
		EmbeddingModel: "test-embed",
		APIKey:         "test-key",
		Dimensions:     dims,
	})
}

func TestEmbedReturnsVector(t *testing.T) {
	t.Parallel()

	server := embeddingTestServer(t, []float64{0.1, 0.2, 0.3})
	client := embeddingTestClient(server.URL, 3)

	vector, err := client.Embed(context.Background(), "climate risk disclosure")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if client.Model() != "test-embed" || client.Dimensions() != 3 {
		t.Fatalf("unexpected model metadata")
	}
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	t.Parallel()

	server := embeddingTestServer(t, []float64{0.1, 0.2})
	client := embeddingTestClient(server.URL, 3)

	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected a dimension mismatch error")
	}
}

func TestEmbedRejectsEmptyResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(server.Close)

	client := embeddingTestClient(server.URL, 0)
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for an empty data array")
	}
}

func TestEmbedRequiresConfiguration(t *testing.T) {
	t.Parallel()

	client := NewEmbeddingClient(config.OpenAIConfig{Endpoint: "http://localhost"})
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error without an api key")
	}
}
