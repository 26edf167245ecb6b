package embed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder memoizes vectors by model and exact text. Re-ingesting a
// revised document re-embeds only the chunks whose text actually changed.
type CachedEmbedder struct {
	inner Embedder
	cache *gocache.Cache
}

// NewCachedEmbedder wraps an embedder with a TTL cache.
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Model returns the inner embedder's model identifier.
func (c *CachedEmbedder) Model() string { return c.inner.Model() }

// Dimension returns the inner embedder's vector length.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Embed returns a cached vector or delegates to the inner embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]float32), nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vector, gocache.DefaultExpiration)
	return vector, nil
}

// EmbedBatch serves cached entries and embeds only the misses, in one
// inner call. Output order matches input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if cached, ok := c.cache.Get(c.cacheKey(text)); ok {
			vectors[i] = cached.([]float32)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		fresh, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vector := range fresh {
			vectors[missIdx[j]] = vector
			c.cache.Set(c.cacheKey(missTexts[j]), vector, gocache.DefaultExpiration)
		}
	}

	return vectors, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Model() + "|" + text))
	return fmt.Sprintf("%x", sum)
}
