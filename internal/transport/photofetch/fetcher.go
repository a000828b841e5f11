// Package photofetch downloads query photos over HTTP for the matching
// orchestrator.
package photofetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pawtrace/pawtrace/internal/domain"
)

// maxImageBytes bounds a downloaded photo (10 MiB).
const maxImageBytes = 10 << 20

// Fetcher downloads image bytes from a URL. Failures wrap
// domain.ErrEmbeddingProvider: a photo that cannot be fetched cannot be
// embedded, and the caller treats both the same way.
type Fetcher struct {
	client *http.Client
}

// New creates a photo fetcher. A non-positive timeout defaults to 30s.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the image at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build photo request: %w: %w", domain.ErrEmbeddingProvider, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w: %w", domain.ErrEmbeddingProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch photo: status %d: %w", resp.StatusCode, domain.ErrEmbeddingProvider)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo body: %w: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes: %w", maxImageBytes, domain.ErrEmbeddingProvider)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("photo body is empty: %w", domain.ErrEmbeddingProvider)
	}

	return data, nil
}
