package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/seek/pkg/processor"
)

// EmbedderConfig represents the configuration for an embedding backend.
type EmbedderConfig struct {
	Provider  string // "ollama", "openai" or "hashing"
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int // requested output size; fixed size for "hashing"
	MaxTokens int // truncation length for "hashing"
}

func (c *EmbedderConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.Model == "" {
		switch c.Provider {
		case "openai":
			c.Model = string(openai.SmallEmbedding3)
		case "ollama":
			c.Model = "nomic-embed-text:latest"
		}
	}
	if c.BaseURL == "" && c.Provider == "ollama" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Dimension == 0 && c.Provider == "hashing" {
		c.Dimension = 384
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 256
	}
}

// ModelID names the vector space c produces after defaults are resolved.
// Configs with equal IDs yield interchangeable vectors.
func (c EmbedderConfig) ModelID() string {
	c.applyDefaults()
	return fmt.Sprintf("%s/%s/%d", c.Provider, c.Model, c.Dimension)
}

// OllamaEmbedder embeds text with an Ollama embedding model.
type OllamaEmbedder struct {
	Config EmbedderConfig
	embed  *embeddings.EmbedderImpl
}

func NewOllamaEmbedder(config EmbedderConfig) (*OllamaEmbedder, error) {
	config.Provider = "ollama"
	config.applyDefaults()

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &OllamaEmbedder{
		Config: config,
		embed:  emb,
	}, nil
}

// CreateEmbedding implements types.Embedder.
func (e *OllamaEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embed.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	Config EmbedderConfig
	client *openai.Client
}

func NewOpenAIEmbedder(config EmbedderConfig) (*OpenAIEmbedder, error) {
	config.Provider = "openai"
	config.applyDefaults()
	if config.APIKey == "" {
		return nil, errors.New("openai embedder: api key is required")
	}

	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}

	return &OpenAIEmbedder{
		Config: config,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// CreateEmbedding implements types.Embedder.
func (e *OpenAIEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.Config.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.Config.Dimension > 0 {
		req.Dimensions = e.Config.Dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai embed: missing vector for input %d", i)
		}
	}
	return vectors, nil
}

// HashingEmbedder is a deterministic, offline embedder. Text is tokenized and
// truncated to MaxTokens; each token is hashed into a signed one-hot vector and
// the token vectors are mean pooled. Padding never contributes to the mean, so
// it is not materialized. Text without tokens maps to the zero vector.
type HashingEmbedder struct {
	Config    EmbedderConfig
	processor processor.Processor
}

func NewHashingEmbedder(config EmbedderConfig) *HashingEmbedder {
	config.Provider = "hashing"
	config.applyDefaults()

	return &HashingEmbedder{
		Config: config,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			MaxTokens:       config.MaxTokens,
			RemoveStopwords: true,
		}),
	}
}

// CreateEmbedding implements types.Embedder.
func (e *HashingEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	dim := uint64(e.Config.Dimension)
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec := make([]float32, dim)
		tokens := e.processor.Tokenize(text)
		for _, tok := range tokens {
			h := xxhash.Sum64String(tok)
			sign := float32(1)
			if h>>63 == 1 {
				sign = -1
			}
			vec[h%dim] += sign
		}
		if n := float32(len(tokens)); n > 0 {
			for j := range vec {
				vec[j] /= n
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}
