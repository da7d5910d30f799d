package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/processor"
	"github.com/xhad/seek/pkg/prompt"
)

// CorrectorConfig represents the configuration for a query corrector.
type CorrectorConfig struct {
	Temperature float64
	Template    prompt.Template
}

// QueryCorrector asks the generator for a grammar-corrected search query and
// reduces the reply to letters, numbers and whitespace.
type QueryCorrector struct {
	config    CorrectorConfig
	generator types.Generator
}

// NewQueryCorrector creates a QueryCorrector. A zero Template selects prompt.QueryCorrection.
func NewQueryCorrector(generator types.Generator, config CorrectorConfig) *QueryCorrector {
	if config.Template.Text == "" {
		config.Template = prompt.QueryCorrection
	}
	return &QueryCorrector{
		config:    config,
		generator: generator,
	}
}

// Normalize implements types.Normalizer.
//
// If the corrected text has nothing left after sanitizing, the sanitized raw
// query is used instead; if that is empty too the query is rejected.
func (c *QueryCorrector) Normalize(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty query", types.ErrMalformedInput)
	}

	corrected, err := c.generator.Generate(ctx, c.config.Template, map[string]any{
		"query": raw,
	}, c.config.Temperature)
	if err != nil {
		return "", fmt.Errorf("%w: correct query: %w", types.ErrGeneration, err)
	}

	query := processor.Sanitize(corrected)
	if query == "" {
		query = processor.Sanitize(raw)
		logging.FromContext(ctx).Warn("Corrected query empty after sanitizing, using raw query",
			zap.String("raw", raw),
			zap.String("corrected", corrected),
		)
	}
	if query == "" {
		return "", fmt.Errorf("%w: query %q has no letters or digits", types.ErrMalformedInput, raw)
	}

	return query, nil
}
