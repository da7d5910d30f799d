package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/llm"
	"github.com/xhad/seek/pkg/prompt"
)

type ollamaChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Options map[string]any `json:"options"`
}

func TestOllamaGenerator(t *testing.T) {
	var req ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"mistral","message":{"role":"assistant","content":"What is AI?"},"done":true}` + "\n"))
	}))
	defer server.Close()

	gen, err := llm.NewOllamaGenerator(llm.GeneratorConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), prompt.QueryCorrection, map[string]any{"query": "wha is AI"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "What is AI?", out)

	assert.Equal(t, "mistral", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Query: wha is AI")
	require.Contains(t, req.Options, "temperature")
	assert.Equal(t, float64(0), req.Options["temperature"])
}

func TestOllamaGeneratorServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model \"mistral\" not found"}` + "\n"))
	}))
	defer server.Close()

	gen, err := llm.NewOllamaGenerator(llm.GeneratorConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	corrector := llm.NewQueryCorrector(gen, llm.CorrectorConfig{})

	_, err = corrector.Normalize(context.Background(), "wha is AI")
	assert.ErrorIs(t, err, types.ErrGeneration)
	assert.ErrorContains(t, err, "not found")
}

func TestOllamaEmbedder(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text:latest", req.Model)

		mu.Lock()
		prompts = append(prompts, req.Prompt)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{float32(len(req.Prompt)), 1, 0},
		})
	}))
	defer server.Close()

	emb, err := llm.NewOllamaEmbedder(llm.EmbedderConfig{BaseURL: server.URL})
	require.NoError(t, err)

	vectors, err := emb.CreateEmbedding(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 1, 0}, vectors[0])
	assert.Equal(t, []float32{2, 1, 0}, vectors[1])
	assert.Equal(t, []float32{3, 1, 0}, vectors[2])
	assert.Equal(t, []string{"a", "bb", "ccc"}, prompts)

	empty, err := emb.CreateEmbedding(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOllamaEmbedderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	emb, err := llm.NewOllamaEmbedder(llm.EmbedderConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = emb.CreateEmbedding(context.Background(), []string{"a"})
	assert.Error(t, err)
}
