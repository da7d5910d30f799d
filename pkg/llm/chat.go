package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/prompt"
)

// NoContextAnswer is returned when no retrieved document carries any text.
const NoContextAnswer = "I couldn't find enough information in the retrieved documents to answer this query."

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Temperature float64
	Template    prompt.Template
}

// ChatEngine answers a query from the retrieved documents.
type ChatEngine struct {
	config    ChatConfig
	generator types.Generator
}

// NewChatEngine creates a ChatEngine. A zero Template selects prompt.Answer.
func NewChatEngine(generator types.Generator, config ChatConfig) *ChatEngine {
	if config.Template.Text == "" {
		config.Template = prompt.Answer
	}
	return &ChatEngine{
		config:    config,
		generator: generator,
	}
}

// Answer implements types.Synthesizer.
func (ce *ChatEngine) Answer(ctx context.Context, query string, docs []models.Document) (string, error) {
	log := logging.FromContext(ctx)

	if !hasContent(docs) {
		log.Info("No usable context, returning fallback answer", zap.Int("documents", len(docs)))
		return NoContextAnswer, nil
	}

	answer, err := ce.generator.Generate(ctx, ce.config.Template, map[string]any{
		"context": formatContext(docs),
		"query":   query,
	}, ce.config.Temperature)
	if err != nil {
		return "", fmt.Errorf("%w: answer: %w", types.ErrGeneration, err)
	}

	answer = strings.TrimSpace(answer)
	log.Debug("Answer generated", zap.Int("length", len(answer)))
	return answer, nil
}

func hasContent(docs []models.Document) bool {
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) != "" {
			return true
		}
	}
	return false
}

// formatContext enumerates the documents for the answer prompt.
func formatContext(docs []models.Document) string {
	var contextBuilder strings.Builder

	for i, doc := range docs {
		contextBuilder.WriteString(fmt.Sprintf("[%d] Title: %s\nURL: %s\nContent: %s\n\n",
			i+1, doc.Title, doc.URL, doc.Content))
	}

	return strings.TrimSpace(contextBuilder.String())
}
