// Package rank implements the similarity fusion and ranking engine:
// per-candidate cosine similarity over image and text embeddings,
// fused as a convex combination, thresholded and capped.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/domain"
	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/match"
	"github.com/pawtrace/pawtrace/internal/logger"
	"github.com/pawtrace/pawtrace/internal/metrics"
)

// Query carries the vectorized match request into the engine. Either
// vector may be nil, but not both.
type Query struct {
	ImageVec []float64
	TextVec  []float64

	// Raw weights as supplied by the caller; normalized by the engine.
	ImageWeight float64
	TextWeight  float64

	Threshold float64
	Limit     int
}

// Service is the ranking engine.
type Service struct {
	candidates CandidateSource
}

// New creates a ranking engine.
func New(candidates CandidateSource) *Service {
	return &Service{candidates: candidates}
}

// Rank fetches the candidate set, scores each candidate against the
// query vectors, and returns matches with score >= threshold, best
// first, at most q.Limit entries.
func (s *Service) Rank(ctx context.Context, q Query) ([]match.Match, error) {
	if len(q.ImageVec) == 0 && len(q.TextVec) == 0 {
		return nil, fmt.Errorf("%w: no query modality supplied", domain.ErrInvalidQuery)
	}

	wi, wt := normalizeWeights(q.ImageWeight, q.TextWeight)

	candidates, err := s.candidates.FindCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	metrics.MatchCandidatesRanked.Observe(float64(len(candidates)))

	// The scoring pass is pure computation with no suspension points;
	// honor an already-cancelled caller before starting it.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	log := logger.FromContext(ctx)

	matches := make([]match.Match, 0, len(candidates))
	for i := range candidates {
		score, ok := s.scoreCandidate(log, &candidates[i], q, wi, wt)
		if !ok {
			continue
		}
		if score >= q.Threshold {
			matches = append(matches, match.New(candidates[i], score))
		}
	}

	sortMatches(matches)

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	return matches, nil
}

// scoreCandidate fuses the available modality similarities. Returns
// ok=false when no modality pair lines up (the candidate carries no
// usable signal) or when a stored vector has the wrong dimensionality.
func (s *Service) scoreCandidate(
	log *zap.Logger, a *domalert.Alert, q Query, wi, wt float64,
) (float64, bool) {
	hasSignal := false
	score := 0.0

	if len(q.ImageVec) > 0 && len(a.ImageEmbedding()) > 0 {
		cos, err := cosine(q.ImageVec, a.ImageEmbedding())
		if err != nil {
			log.Warn("Skipping candidate with malformed image embedding",
				zap.String("alert_id", a.ID()), zap.Error(err))
			return 0, false
		}
		score += wi * cos
		hasSignal = true
	}

	if len(q.TextVec) > 0 && len(a.TextEmbedding()) > 0 {
		cos, err := cosine(q.TextVec, a.TextEmbedding())
		if err != nil {
			log.Warn("Skipping candidate with malformed text embedding",
				zap.String("alert_id", a.ID()), zap.Error(err))
			return 0, false
		}
		score += wt * cos
		hasSignal = true
	}

	return score, hasSignal
}

// normalizeWeights rescales (wi, wt) to sum to 1. A zero sum falls
// back to the default 0.7/0.3 split.
func normalizeWeights(wi, wt float64) (float64, float64) {
	sum := wi + wt
	if sum == 0 {
		return match.DefaultImageWeight, match.DefaultTextWeight
	}
	return wi / sum, wt / sum
}

// sortMatches orders by score descending, ties broken by most recent
// created_at, then by id so identical inputs always yield identical
// output.
func sortMatches(matches []match.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score() != matches[j].Score() {
			return matches[i].Score() > matches[j].Score()
		}
		ci, cj := matches[i].Alert().CreatedAt(), matches[j].Alert().CreatedAt()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return matches[i].Alert().ID() < matches[j].Alert().ID()
	})
}

// cosine computes (a.b)/(|a|*|b|). A zero-norm vector yields 0 rather
// than an error (degenerate upstream data, not a reason to fail the
// query). Mismatched dimensionality is an error; the caller skips that
// candidate.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrVectorDimMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
