package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/store"
)

// DefaultTopK is the number of documents handed to the synthesizer.
const DefaultTopK = 3

// Retriever selects the documents of an index nearest to a query. It must
// share its embedder with the Indexer that built the index.
type Retriever struct {
	embedder types.Embedder
	k        int
	timeout  time.Duration
}

func NewRetriever(embedder types.Embedder, k int, timeout time.Duration) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{embedder: embedder, k: k, timeout: timeout}
}

// Retrieve returns min(k, index.Len()) documents, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, index *store.MemoryIndex, query string) ([]models.Document, error) {
	if index.Len() == 0 {
		return []models.Document{}, nil
	}

	vectors, err := embed(ctx, r.embedder, r.timeout, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", types.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for the query", types.ErrEmbedding, len(vectors))
	}

	hits, err := index.Search(vectors[0], r.k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbedding, err)
	}

	docs := make([]models.Document, len(hits))
	for i, hit := range hits {
		docs[i] = hit.Document
		logging.FromContext(ctx).Debug("Retrieved document",
			zap.Int("rank", i+1),
			zap.Int("position", hit.Position),
			zap.Float64("score", hit.Score),
			zap.String("url", hit.Document.URL),
		)
	}
	return docs, nil
}
