package store

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/xhad/seek/internal/models"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is one search result. Position is the document's index in the corpus.
type Hit struct {
	Document models.Document
	Score    float64
	Position int
}

// MemoryIndex is an immutable in-memory vector index over one corpus.
// It is built once per pipeline run and discarded afterwards.
//
// A nil or empty vector stands for "no embedding" and always scores 0.
type MemoryIndex struct {
	docs    []models.Document
	vectors [][]float32
	dim     int
}

func NewMemoryIndex(docs []models.Document, vectors [][]float32) (*MemoryIndex, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("index: %d documents but %d vectors", len(docs), len(vectors))
	}

	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return nil, fmt.Errorf("index: vector %d has dimension %d, want %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}

	ix := &MemoryIndex{
		docs:    make([]models.Document, len(docs)),
		vectors: make([][]float32, len(vectors)),
		dim:     dim,
	}
	copy(ix.docs, docs)
	copy(ix.vectors, vectors)
	return ix, nil
}

// Len returns the number of indexed documents.
func (ix *MemoryIndex) Len() int { return len(ix.docs) }

// Dimension returns the vector dimension, or 0 when nothing was embedded.
func (ix *MemoryIndex) Dimension() int { return ix.dim }

// Search returns the min(k, Len()) documents most similar to query by cosine
// similarity, best first. Equal scores keep corpus order.
func (ix *MemoryIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(ix.docs) == 0 {
		return []Hit{}, nil
	}
	if ix.dim != 0 && len(query) != 0 && len(query) != ix.dim {
		return nil, fmt.Errorf("index: query has dimension %d, want %d: %w", len(query), ix.dim, ErrDimensionMismatch)
	}

	hits := make([]Hit, len(ix.docs))
	for i, doc := range ix.docs {
		hits[i] = Hit{
			Document: doc,
			Score:    Cosine(query, ix.vectors[i]),
			Position: i,
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(score) {
		return 0
	}
	return score
}
