package llm

import (
	"fmt"

	"github.com/xhad/seek/internal/types"
)

// NewGenerator builds the generator named by config.Provider.
func NewGenerator(config GeneratorConfig) (types.Generator, error) {
	switch config.Provider {
	case "", "ollama":
		return NewOllamaGenerator(config)
	case "openai":
		return NewOpenAIGenerator(config)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

// NewEmbedder builds the embedder named by config.Provider.
func NewEmbedder(config EmbedderConfig) (types.Embedder, error) {
	switch config.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(config)
	case "openai":
		return NewOpenAIEmbedder(config)
	case "hashing":
		return NewHashingEmbedder(config), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
}
