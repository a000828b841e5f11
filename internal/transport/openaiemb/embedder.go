// Package openaiemb provides image and text embedders over any
// OpenAI-compatible embeddings API. The image embedder targets
// CLIP-style servers (Infinity, Nebius) that accept base64 image
// payloads on the same endpoint.
package openaiemb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/domain"
	"github.com/pawtrace/pawtrace/internal/metrics"
)

const (
	modalityImage = "image"
	modalityText  = "text"
)

// Config holds the embedding provider settings for one modality.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// embedder is the shared transport core for both modalities.
type embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	modality   string
	logger     *zap.Logger
}

func newEmbedder(cfg *Config, modality string) *embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		modality:   modality,
		logger:     cfg.Logger,
	}
}

// embed sends one input through the embeddings endpoint and widens the
// response vector to float64 for the fusion math.
func (e *embedder) embed(ctx context.Context, input string) ([]float64, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{input},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.modality, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.modality, string(e.model), "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.modality, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.modality, string(e.model), "empty_response").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.modality, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.modality, string(e.model)).Observe(duration.Seconds())

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	return vec, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// TextEmbedder implements domain.TextEmbedder.
type TextEmbedder struct {
	*embedder
}

// NewTextEmbedder creates a text embedding provider.
func NewTextEmbedder(cfg *Config) *TextEmbedder {
	return &TextEmbedder{embedder: newEmbedder(cfg, modalityText)}
}

// EmbedText returns the embedding vector for the given text.
func (e *TextEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text is empty: %w", domain.ErrEmbeddingProvider)
	}
	return e.embed(ctx, text)
}

// ImageEmbedder implements domain.ImageEmbedder.
type ImageEmbedder struct {
	*embedder
}

// NewImageEmbedder creates an image embedding provider.
func NewImageEmbedder(cfg *Config) *ImageEmbedder {
	return &ImageEmbedder{embedder: newEmbedder(cfg, modalityImage)}
}

// EmbedImage returns the embedding vector for the given image bytes.
// The payload is passed as a base64 data URI, which CLIP-serving
// endpoints decode on the input slot.
func (e *ImageEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty: %w", domain.ErrEmbeddingProvider)
	}

	mime := http.DetectContentType(data)
	input := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	return e.embed(ctx, input)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProvider for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
