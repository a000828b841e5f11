// Package match orchestrates a similarity match: vectorize the query's
// photo and description, then hand both to the ranking engine.
package match

import (
	"context"
	"fmt"

	"github.com/pawtrace/pawtrace/internal/domain"
	dommatch "github.com/pawtrace/pawtrace/internal/domain/match"
	"github.com/pawtrace/pawtrace/internal/metrics"
	"github.com/pawtrace/pawtrace/internal/usecase/rank"
)

// Service is the matching orchestrator.
type Service struct {
	photos   PhotoFetcher
	imageEmb domain.ImageEmbedder
	textEmb  domain.TextEmbedder
	ranker   Ranker
}

// New creates a matching orchestrator.
func New(photos PhotoFetcher, imageEmb domain.ImageEmbedder, textEmb domain.TextEmbedder, ranker Ranker) *Service {
	return &Service{photos: photos, imageEmb: imageEmb, textEmb: textEmb, ranker: ranker}
}

// Find vectorizes the query and returns the ranked matches. Unlike
// alert-creation-time embedding, a query-time embedding failure aborts
// the whole request: the caller asked for a modality and silence would
// misrepresent the result.
func (s *Service) Find(ctx context.Context, req *dommatch.Request) ([]dommatch.Match, error) {
	matches, err := s.find(ctx, req)
	if err != nil {
		metrics.MatchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.MatchRequestsTotal.WithLabelValues("success").Inc()
	metrics.MatchResultsReturned.Observe(float64(len(matches)))
	return matches, nil
}

func (s *Service) find(ctx context.Context, req *dommatch.Request) ([]dommatch.Match, error) {
	q := rank.Query{
		ImageWeight: req.ImageWeight(),
		TextWeight:  req.TextWeight(),
		Threshold:   req.Threshold(),
		Limit:       req.Limit(),
	}

	if url := req.PhotoURL(); url != "" {
		data, err := s.photos.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch query photo: %w", err)
		}
		q.ImageVec, err = s.imageEmb.EmbedImage(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("embed query image: %w", err)
		}
	}

	if text := req.Description(); text != "" {
		var err error
		q.TextVec, err = s.textEmb.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query text: %w", err)
		}
	}

	matches, err := s.ranker.Rank(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	return matches, nil
}
