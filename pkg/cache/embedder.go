package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/metrics"
)

// Backend is a byte-valued key/value store with expiry.
type Backend interface {
	// MGet returns one entry per key, nil for a miss.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Config struct {
	Model     string // part of every key, so vectors of different models never mix
	TTL       time.Duration
	KeyPrefix string
}

// Embedder memoizes another embedder by content. Keys are
// sha256(model, text), so a changed document simply misses.
type Embedder struct {
	config  Config
	next    types.Embedder
	backend Backend
}

func NewEmbedder(next types.Embedder, backend Backend, config Config) *Embedder {
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "seek:emb:"
	}
	return &Embedder{
		config:  config,
		next:    next,
		backend: backend,
	}
}

// CreateEmbedding implements types.Embedder. Cache failures are logged and
// treated as misses.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log := logging.FromContext(ctx)

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = e.key(text)
	}

	vectors := make([][]float32, len(texts))
	cached, err := e.backend.MGet(ctx, keys)
	if err != nil {
		log.Warn("Embedding cache lookup failed", zap.Error(err))
		cached = nil
	}

	var missing []int
	for i := range texts {
		if i < len(cached) && cached[i] != nil {
			if v, err := decode(cached[i]); err == nil {
				vectors[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Add(float64(len(texts) - len(missing)))
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Add(float64(len(missing)))

	if len(missing) == 0 {
		return vectors, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	fresh, err := e.next.CreateEmbedding(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(batch))
	}

	for j, i := range missing {
		vectors[i] = fresh[j]
		if err := e.backend.Set(ctx, keys[i], encode(fresh[j]), e.config.TTL); err != nil {
			log.Warn("Embedding cache write failed", zap.Error(err))
		}
	}
	return vectors, nil
}

func (e *Embedder) key(text string) string {
	h := sha256.New()
	h.Write([]byte(e.config.Model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return e.config.KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// encode writes v as little-endian float32s.
func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
