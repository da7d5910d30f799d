package types

import (
	"context"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/prompt"
)

// Core interfaces

// Embedder maps texts to fixed-length vectors. Identical input must give
// identical output, and documents and queries must go through the same instance.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the text-generation service.
type Generator interface {
	Generate(ctx context.Context, tmpl prompt.Template, vars map[string]any, temperature float64) (string, error)
}

// Normalizer turns a raw user query into the query used by every later stage.
type Normalizer interface {
	Normalize(ctx context.Context, raw string) (string, error)
}

// Crawler gathers the candidate corpus for a query. Per-page failures are
// replaced by placeholders; only context cancellation is returned as an error.
type Crawler interface {
	Crawl(ctx context.Context, query string) ([]models.Document, error)
}

// Synthesizer produces the final answer from the retrieved documents.
type Synthesizer interface {
	Answer(ctx context.Context, query string, docs []models.Document) (string, error)
}
