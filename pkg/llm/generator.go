package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/seek/pkg/metrics"
	"github.com/xhad/seek/pkg/prompt"
)

// GeneratorConfig represents the configuration for a text-generation backend.
type GeneratorConfig struct {
	Provider  string // "ollama" or "openai"
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

func (c *GeneratorConfig) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.Model == "" {
		switch c.Provider {
		case "openai":
			c.Model = openai.GPT4oMini
		default:
			c.Model = "mistral"
		}
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.BaseURL == "" && c.Provider == "ollama" {
		c.BaseURL = "http://localhost:11434"
	}
}

// completeFunc sends one rendered prompt to a backend.
type completeFunc func(ctx context.Context, text string, temperature float64) (string, error)

// generate renders tmpl, bounds the call with timeout and records the outcome.
func generate(
	ctx context.Context, provider string, timeout time.Duration,
	tmpl prompt.Template, vars map[string]any, temperature float64, complete completeFunc,
) (string, error) {
	text, err := tmpl.Render(vars)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := complete(ctx, text, temperature)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, "error").Inc()
		return "", fmt.Errorf("%s %s: %w", provider, tmpl.ID(), err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(provider, "success").Inc()
	return out, nil
}

// OllamaGenerator generates text through a local Ollama server.
type OllamaGenerator struct {
	config GeneratorConfig
	llm    llms.Model
}

// NewOllamaGenerator creates a generator backed by langchaingo's Ollama client.
func NewOllamaGenerator(config GeneratorConfig) (*OllamaGenerator, error) {
	config.Provider = "ollama"
	config.applyDefaults()

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &OllamaGenerator{
		config: config,
		llm:    llm,
	}, nil
}

// Generate implements types.Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, tmpl prompt.Template, vars map[string]any, temperature float64) (string, error) {
	return generate(ctx, "ollama", g.config.Timeout, tmpl, vars, temperature,
		func(ctx context.Context, text string, temperature float64) (string, error) {
			return llms.GenerateFromSinglePrompt(ctx, g.llm, text,
				llms.WithTemperature(temperature),
				llms.WithMaxTokens(g.config.MaxTokens))
		})
}

// OpenAIGenerator generates text through an OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	config GeneratorConfig
	client *openai.Client
}

// NewOpenAIGenerator creates a generator for the OpenAI API or any compatible endpoint.
func NewOpenAIGenerator(config GeneratorConfig) (*OpenAIGenerator, error) {
	config.Provider = "openai"
	config.applyDefaults()
	if config.APIKey == "" {
		return nil, errors.New("openai generator: api key is required")
	}

	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}

	return &OpenAIGenerator{
		config: config,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Generate implements types.Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, tmpl prompt.Template, vars map[string]any, temperature float64) (string, error) {
	return generate(ctx, "openai", g.config.Timeout, tmpl, vars, temperature,
		func(ctx context.Context, text string, temperature float64) (string, error) {
			resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: g.config.Model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: text},
				},
				Temperature: openAITemperature(temperature),
				MaxTokens:   g.config.MaxTokens,
			})
			if err != nil {
				return "", err
			}
			if len(resp.Choices) == 0 {
				return "", errors.New("empty completion response")
			}
			return resp.Choices[0].Message.Content, nil
		})
}

// openAITemperature keeps a zero temperature on the wire; the request field is
// omitempty, so a literal 0 would fall back to the server default.
func openAITemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
