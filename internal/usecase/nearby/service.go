// Package nearby implements the proximity query component: active
// missing-pet alerts within a radius of a point, nearest first.
package nearby

import (
	"context"
	"fmt"

	"github.com/pawtrace/pawtrace/internal/domain"
	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
	"github.com/pawtrace/pawtrace/internal/metrics"
)

// Defaults mirror the service's query parameters.
const (
	DefaultRadiusM = 5000.0
	DefaultLimit   = 50
)

// Service handles proximity queries.
type Service struct {
	repo Repository
}

// New creates a proximity query service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Find returns active missing-type alerts within radiusM meters of p,
// nearest first, windowed by (skip, limit). A non-positive radius or
// limit takes the default; out-of-range coordinates and a negative skip
// wrap domain.ErrInvalidQuery.
func (s *Service) Find(
	ctx context.Context, p geo.Point, radiusM float64, skip, limit int,
) ([]domalert.Alert, error) {
	alerts, err := s.find(ctx, p, radiusM, skip, limit)
	if err != nil {
		metrics.ProximityRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ProximityRequestsTotal.WithLabelValues("success").Inc()
	return alerts, nil
}

func (s *Service) find(
	ctx context.Context, p geo.Point, radiusM float64, skip, limit int,
) ([]domalert.Alert, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range: (%g, %g)", domain.ErrInvalidQuery, p.Lat, p.Lon)
	}
	if radiusM == 0 {
		radiusM = DefaultRadiusM
	}
	if radiusM < 0 {
		return nil, fmt.Errorf("%w: radius must be positive, got %g", domain.ErrInvalidQuery, radiusM)
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative, got %d", domain.ErrInvalidQuery, skip)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}

	alerts, err := s.repo.FindNear(ctx, p, radiusM, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("find near: %w", err)
	}
	return alerts, nil
}
