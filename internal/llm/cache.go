package llm

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder produces a fixed-dimension vector for a text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder memoizes text-to-vector lookups in front of an Embedder.
// Keys are the trimmed verbatim text. The cache is size-bounded with LRU
// eviction; the get-or-create contract is otherwise unchanged. Errors from
// the backend propagate uncached (no negative caching).
type CachedEmbedder struct {
	backend Embedder
	cache   *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps an embedder with a bounded LRU cache of the given size.
func NewCachedEmbedder(backend Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEmbedder{
		backend: backend,
		cache:   cache,
	}, nil
}

// EmbedText returns the cached vector for text if present, otherwise calls
// the backend once and stores the result.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.backend.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
