package pipeline_test

import (
	"context"
	"errors"
	"sync"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/prompt"
)

// scriptedGenerator replies by template name.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, tmpl prompt.Template, vars map[string]any, _ float64) (string, error) {
	if _, err := tmpl.Render(vars); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, tmpl.Name)
	if err := g.errs[tmpl.Name]; err != nil {
		return "", err
	}
	return g.replies[tmpl.Name], nil
}

func (g *scriptedGenerator) called(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

type staticCrawler struct {
	docs []models.Document
	err  error

	mu      sync.Mutex
	queries []string
}

func (c *staticCrawler) Crawl(ctx context.Context, query string) ([]models.Document, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.docs, c.err
}

// tableEmbedder returns fixed vectors per text; unknown texts get fallback.
type tableEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error

	mu    sync.Mutex
	calls [][]string
}

func (e *tableEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, texts)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = e.fallback
	}
	return out, nil
}

var errUpstream = errors.New("upstream unavailable")

func docs(entries ...[2]string) []models.Document {
	out := make([]models.Document, len(entries))
	for i, e := range entries {
		out[i] = models.Document{
			Title:   e[0],
			Content: e[1],
			URL:     "https://en.wikipedia.org/wiki/" + e[0],
		}
	}
	return out
}
