// Package embcache decorates the embedding providers with a key-value
// cache keyed by content hash, so re-submitted photos and unchanged
// descriptions never hit the provider twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/db"
	"github.com/pawtrace/pawtrace/internal/domain"
	"github.com/pawtrace/pawtrace/internal/metrics"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cache is the shared hit/miss/codec core for both modalities.
type cache struct {
	store    store
	ttl      time.Duration
	modality string
	logger   *zap.Logger
}

func (c *cache) key(payload []byte) string {
	h := sha256.Sum256(payload)
	return cacheKeyPrefix + c.modality + ":" + hex.EncodeToString(h[:])
}

func (c *cache) get(ctx context.Context, key string) ([]float64, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *cache) put(ctx context.Context, key string, vec []float64) {
	data := vectorToCacheBytes(vec)

	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func (c *cache) inc(result string) {
	metrics.EmbeddingCacheTotal.WithLabelValues(c.modality, result).Inc()
}

// CachedImageEmbedder caches image embeddings keyed by image content hash.
type CachedImageEmbedder struct {
	inner domain.ImageEmbedder
	cache cache
}

// NewImage creates a caching decorator around an image embedder. A
// non-positive ttl keeps entries forever.
func NewImage(inner domain.ImageEmbedder, s store, ttl time.Duration, logger *zap.Logger) *CachedImageEmbedder {
	return &CachedImageEmbedder{
		inner: inner,
		cache: cache{store: s, ttl: ttl, modality: "image", logger: logger},
	}
}

// EmbedImage returns a cached embedding or calls the inner embedder.
func (c *CachedImageEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float64, error) {
	key := c.cache.key(data)

	if vec, ok := c.cache.get(ctx, key); ok {
		c.cache.inc("hit")
		return vec, nil
	}
	c.cache.inc("miss")

	vec, err := c.inner.EmbedImage(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}

	c.cache.put(ctx, key, vec)
	return vec, nil
}

// CachedTextEmbedder caches text embeddings keyed by text hash.
type CachedTextEmbedder struct {
	inner domain.TextEmbedder
	cache cache
}

// NewText creates a caching decorator around a text embedder. A
// non-positive ttl keeps entries forever.
func NewText(inner domain.TextEmbedder, s store, ttl time.Duration, logger *zap.Logger) *CachedTextEmbedder {
	return &CachedTextEmbedder{
		inner: inner,
		cache: cache{store: s, ttl: ttl, modality: "text", logger: logger},
	}
}

// EmbedText returns a cached embedding or calls the inner embedder.
func (c *CachedTextEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	key := c.cache.key([]byte(text))

	if vec, ok := c.cache.get(ctx, key); ok {
		c.cache.inc("hit")
		return vec, nil
	}
	c.cache.inc("miss")

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.cache.put(ctx, key, vec)
	return vec, nil
}

func vectorToCacheBytes(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 8)", len(data))
	}
	vec := make([]float64, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}
