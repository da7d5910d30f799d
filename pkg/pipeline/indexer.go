package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/store"
)

// Indexer embeds a corpus and builds its similarity index.
type Indexer struct {
	embedder types.Embedder
	timeout  time.Duration
}

func NewIndexer(embedder types.Embedder, timeout time.Duration) *Indexer {
	return &Indexer{embedder: embedder, timeout: timeout}
}

// Build embeds the content of every document in a single call and returns a
// fresh index over exactly docs. Documents without content get the zero vector.
func (ix *Indexer) Build(ctx context.Context, docs []models.Document) (*store.MemoryIndex, error) {
	texts := make([]string, 0, len(docs))
	positions := make([]int, 0, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		texts = append(texts, doc.Content)
		positions = append(positions, i)
	}

	vectors := make([][]float32, len(docs))
	if len(texts) > 0 {
		embedded, err := embed(ctx, ix.embedder, ix.timeout, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embed documents: %w", types.ErrEmbedding, err)
		}
		if len(embedded) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d documents", types.ErrEmbedding, len(embedded), len(texts))
		}
		for j, pos := range positions {
			vectors[pos] = embedded[j]
		}

		dim := len(embedded[0])
		for i := range vectors {
			if vectors[i] == nil {
				vectors[i] = make([]float32, dim)
			}
		}
	}

	index, err := store.NewMemoryIndex(docs, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbedding, err)
	}

	logging.FromContext(ctx).Debug("Index built",
		zap.Int("documents", index.Len()),
		zap.Int("embedded", len(texts)),
		zap.Int("dimension", index.Dimension()),
	)
	return index, nil
}

func embed(ctx context.Context, embedder types.Embedder, timeout time.Duration, texts []string) ([][]float32, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return embedder.CreateEmbedding(ctx, texts)
}
