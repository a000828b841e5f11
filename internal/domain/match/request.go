// Package match holds the validated similarity-match request and the
// scored result pairing an alert with its fused similarity.
package match

import (
	"fmt"

	"github.com/pawtrace/pawtrace/internal/domain"
)

// Defaults mirror the service's query parameters.
const (
	DefaultImageWeight = 0.7
	DefaultTextWeight  = 0.3
	DefaultThreshold   = 0.7
	DefaultLimit       = 10
	MaxLimit           = 50
)

// Request is a validated similarity-match query. At least one of the
// photo URL or the description must be supplied.
type Request struct {
	photoURL    string
	description string
	imageWeight float64
	textWeight  float64
	threshold   float64
	limit       int
}

// NewRequest validates match parameters before any collaborator call is
// made. Weights and threshold must lie in [0,1]; limit defaults to 10
// and is capped at 50. All violations wrap domain.ErrInvalidQuery.
func NewRequest(photoURL, description string, imageWeight, textWeight, threshold float64, limit int) (Request, error) {
	if photoURL == "" && description == "" {
		return Request{}, fmt.Errorf("%w: either a photo URL or a description is required", domain.ErrInvalidQuery)
	}
	if imageWeight < 0 || imageWeight > 1 {
		return Request{}, fmt.Errorf("%w: image weight %g outside [0,1]", domain.ErrInvalidQuery, imageWeight)
	}
	if textWeight < 0 || textWeight > 1 {
		return Request{}, fmt.Errorf("%w: text weight %g outside [0,1]", domain.ErrInvalidQuery, textWeight)
	}
	if threshold < 0 || threshold > 1 {
		return Request{}, fmt.Errorf("%w: threshold %g outside [0,1]", domain.ErrInvalidQuery, threshold)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		photoURL:    photoURL,
		description: description,
		imageWeight: imageWeight,
		textWeight:  textWeight,
		threshold:   threshold,
		limit:       limit,
	}, nil
}

// PhotoURL returns the query image location (empty if none).
func (r *Request) PhotoURL() string { return r.photoURL }

// Description returns the query text (empty if none).
func (r *Request) Description() string { return r.description }

// ImageWeight returns the raw (pre-normalization) image weight.
func (r *Request) ImageWeight() float64 { return r.imageWeight }

// TextWeight returns the raw (pre-normalization) text weight.
func (r *Request) TextWeight() float64 { return r.textWeight }

// Threshold returns the fused-score cutoff.
func (r *Request) Threshold() float64 { return r.threshold }

// Limit returns the maximum number of matches to return.
func (r *Request) Limit() int { return r.limit }
