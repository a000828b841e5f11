// Package report implements the missing-pet report lifecycle: create
// with best-effort embedding ingestion, retrieval, listing and resolve.
package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/domain"
	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
	"github.com/pawtrace/pawtrace/internal/logger"
)

// Listing window bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// CreateParams carries a new missing-pet report.
type CreateParams struct {
	PetID       string
	PetName     string
	Species     string
	Description string
	ContactInfo string
	PhotoURLs   []string
	Location    *geo.Point
	CreatedBy   string
}

// Service handles the report lifecycle.
type Service struct {
	repo     Repository
	photos   PhotoFetcher
	imageEmb domain.ImageEmbedder
	textEmb  domain.TextEmbedder
	now      func() time.Time
}

// New creates a report service.
func New(repo Repository, photos PhotoFetcher, imageEmb domain.ImageEmbedder, textEmb domain.TextEmbedder) *Service {
	return &Service{
		repo:     repo,
		photos:   photos,
		imageEmb: imageEmb,
		textEmb:  textEmb,
		now:      time.Now,
	}
}

// Create files a missing-pet report. Embedding ingestion is
// best-effort: a degraded embedding pipeline must never block filing a
// report, so failures are logged and the corresponding vector stays
// unset.
func (s *Service) Create(ctx context.Context, p CreateParams) (domalert.Alert, error) {
	title := synthesizeTitle(p.Species, p.PetName)

	a, err := domalert.New(
		p.PetID, domalert.TypeMissing, title, p.Description, p.Species,
		p.ContactInfo, p.PhotoURLs, p.Location, p.CreatedBy, s.now().UTC(),
	)
	if err != nil {
		return domalert.Alert{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	s.tryEmbed(ctx, &a)

	if err := s.repo.Insert(ctx, &a); err != nil {
		return domalert.Alert{}, fmt.Errorf("insert report: %w", err)
	}
	return a, nil
}

// Get returns a report by id.
func (s *Service) Get(ctx context.Context, id string) (domalert.Alert, error) {
	if id == "" {
		return domalert.Alert{}, fmt.Errorf("%w: report id is required", domain.ErrInvalidQuery)
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return domalert.Alert{}, fmt.Errorf("get report: %w", err)
	}
	return a, nil
}

// List returns open missing-pet reports newest first, optionally
// filtered by species.
func (s *Service) List(ctx context.Context, species string, skip, limit int) ([]domalert.Alert, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative, got %d", domain.ErrInvalidQuery, skip)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	alerts, err := s.repo.List(ctx, species, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return alerts, nil
}

// Resolve marks a report closed. Embeddings are left in place; the
// alert simply stops matching.
func (s *Service) Resolve(ctx context.Context, id string) (domalert.Alert, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return domalert.Alert{}, err
	}

	resolved := a.Resolved(s.now().UTC())
	if err := s.repo.Update(ctx, &resolved); err != nil {
		return domalert.Alert{}, fmt.Errorf("resolve report: %w", err)
	}
	return resolved, nil
}

// tryEmbed attaches image and text vectors where the pipelines succeed.
func (s *Service) tryEmbed(ctx context.Context, a *domalert.Alert) {
	log := logger.FromContext(ctx)

	if urls := a.PhotoURLs(); len(urls) > 0 {
		if vec, err := s.embedPhoto(ctx, urls[0]); err != nil {
			log.Warn("Failed to embed report photo, storing without image vector",
				zap.String("photo_url", urls[0]), zap.Error(err))
		} else {
			a.SetImageEmbedding(vec)
		}
	}

	if desc := a.Description(); desc != "" {
		if vec, err := s.textEmb.EmbedText(ctx, desc); err != nil {
			log.Warn("Failed to embed report description, storing without text vector",
				zap.Error(err))
		} else {
			a.SetTextEmbedding(vec)
		}
	}
}

func (s *Service) embedPhoto(ctx context.Context, url string) ([]float64, error) {
	data, err := s.photos.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	vec, err := s.imageEmb.EmbedImage(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed photo: %w", err)
	}
	return vec, nil
}

// synthesizeTitle builds the report headline, e.g. "Missing cat: Luna".
func synthesizeTitle(species, name string) string {
	switch {
	case species == "" && name == "":
		return "Missing pet"
	case species == "":
		return "Missing pet: " + name
	case name == "":
		return "Missing " + species
	default:
		return "Missing " + species + ": " + name
	}
}
