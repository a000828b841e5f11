package domain

import "context"

// ImageEmbedder turns raw image bytes into a unit-normalized vector.
// Implementations must wrap failures with ErrEmbeddingProvider.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) ([]float64, error)
}

// TextEmbedder turns text into a unit-normalized vector.
// Implementations must wrap failures with ErrEmbeddingProvider.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
