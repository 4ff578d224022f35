package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// CachingEmbedder memoizes single-text encodings, which is the shape of every
// query embedding. Batches bypass the cache.
type CachingEmbedder struct {
	inner Embedder
	cache *lru.Cache
}

// NewCachingEmbedder wraps inner with an LRU cache holding up to size vectors.
func NewCachingEmbedder(inner Embedder, size int) (*CachingEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachingEmbedder{inner: inner, cache: c}, nil
}

func (c *CachingEmbedder) Name() string { return c.inner.Name() }

func (c *CachingEmbedder) Dimension() int { return c.inner.Dimension() }

// Prepare forwards to the wrapped embedder and drops every cached vector,
// since a new corpus may change the embedding space.
func (c *CachingEmbedder) Prepare(ctx context.Context, corpus []string) error {
	c.cache.Purge()
	return c.inner.Prepare(ctx, corpus)
}

func (c *CachingEmbedder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) != 1 {
		return c.inner.Encode(ctx, texts)
	}
	if v, ok := c.cache.Get(texts[0]); ok {
		return [][]float64{v.([]float64)}, nil
	}
	vecs, err := c.inner.Encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 1 {
		c.cache.Add(texts[0], vecs[0])
	}
	return vecs, nil
}

// Len reports how many vectors are cached.
func (c *CachingEmbedder) Len() int { return c.cache.Len() }
