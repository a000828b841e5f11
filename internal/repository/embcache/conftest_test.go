package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/db"
)

type mockImageEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte) ([]float64, error) {
	m.calls++
	return m.vec, m.err
}

type mockTextEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (m *mockTextEmbedder) EmbedText(_ context.Context, _ string) ([]float64, error) {
	m.calls++
	return m.vec, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn       func(ctx context.Context, key string) ([]byte, error)
	setFn       func(ctx context.Context, key string, value []byte) error
	setWithTTLFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setWithTTLFn != nil {
		return m.setWithTTLFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestImageCache(t *testing.T, inner *mockImageEmbedder, ttl time.Duration) (*CachedImageEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return NewImage(inner, ms, ttl, zap.NewNop()), ms
}

func newTestTextCache(t *testing.T, inner *mockTextEmbedder, ttl time.Duration) (*CachedTextEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return NewText(inner, ms, ttl, zap.NewNop()), ms
}
