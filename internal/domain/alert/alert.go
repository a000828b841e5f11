// Package alert holds the Alert aggregate: a report of a missing,
// found or sighted pet, optionally carrying image and text embeddings.
package alert

import (
	"fmt"
	"time"

	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

// Type classifies an alert.
type Type string

const (
	// TypeMissing is a missing-pet report.
	TypeMissing Type = "missing"
	// TypeFound is a found-pet report.
	TypeFound Type = "found"
	// TypeSighting is a pet sighting.
	TypeSighting Type = "sighting"
)

// IsValid reports whether t is a known alert type.
func (t Type) IsValid() bool {
	switch t {
	case TypeMissing, TypeFound, TypeSighting:
		return true
	}
	return false
}

// Alert is the alert aggregate (immutable value object; embeddings are
// attached once, best-effort, after construction).
type Alert struct {
	id          string
	petID       string
	alertType   Type
	title       string
	description string
	species     string
	contactInfo string
	photoURLs   []string
	location    *geo.Point
	isActive    bool

	imageEmbedding []float64
	textEmbedding  []float64

	createdBy string
	createdAt time.Time
	updatedAt time.Time
}

// New validates and creates an active Alert. The ID is assigned by the
// store on insert.
func New(
	petID string, alertType Type, title, description, species, contactInfo string,
	photoURLs []string, location *geo.Point, createdBy string, createdAt time.Time,
) (Alert, error) {
	if !alertType.IsValid() {
		return Alert{}, fmt.Errorf("unknown alert type %q", alertType)
	}
	if title == "" {
		return Alert{}, fmt.Errorf("title is required")
	}
	if contactInfo == "" {
		return Alert{}, fmt.Errorf("contact info is required")
	}
	if location != nil && !location.Valid() {
		return Alert{}, fmt.Errorf("coordinates out of range: (%f, %f)", location.Lat, location.Lon)
	}
	if createdAt.IsZero() {
		return Alert{}, fmt.Errorf("creation time is required")
	}

	return Alert{
		petID:       petID,
		alertType:   alertType,
		title:       title,
		description: description,
		species:     species,
		contactInfo: contactInfo,
		photoURLs:   append([]string(nil), photoURLs...),
		location:    location,
		isActive:    true,
		createdBy:   createdBy,
		createdAt:   createdAt,
	}, nil
}

// Reconstruct creates an Alert without validation (storage hydration).
func Reconstruct(
	id, petID string, alertType Type, title, description, species, contactInfo string,
	photoURLs []string, location *geo.Point, isActive bool,
	imageEmbedding, textEmbedding []float64,
	createdBy string, createdAt, updatedAt time.Time,
) Alert {
	return Alert{
		id: id, petID: petID, alertType: alertType,
		title: title, description: description, species: species,
		contactInfo: contactInfo, photoURLs: photoURLs,
		location: location, isActive: isActive,
		imageEmbedding: imageEmbedding, textEmbedding: textEmbedding,
		createdBy: createdBy, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the store-assigned identifier (empty before insert).
func (a *Alert) ID() string { return a.id }

// PetID returns the reported pet's identifier.
func (a *Alert) PetID() string { return a.petID }

// Type returns the alert classification.
func (a *Alert) Type() Type { return a.alertType }

// Title returns the alert headline.
func (a *Alert) Title() string { return a.title }

// Description returns the free-text description.
func (a *Alert) Description() string { return a.description }

// Species returns the pet species (dog, cat, ...).
func (a *Alert) Species() string { return a.species }

// ContactInfo returns the reporter's contact details.
func (a *Alert) ContactInfo() string { return a.contactInfo }

// PhotoURLs returns the attached photo URLs.
func (a *Alert) PhotoURLs() []string { return a.photoURLs }

// Location returns the geographic point, or nil if unknown.
func (a *Alert) Location() *geo.Point { return a.location }

// IsActive reports whether the alert is still open.
func (a *Alert) IsActive() bool { return a.isActive }

// ImageEmbedding returns the stored image vector, or nil if absent.
func (a *Alert) ImageEmbedding() []float64 { return a.imageEmbedding }

// TextEmbedding returns the stored text vector, or nil if absent.
func (a *Alert) TextEmbedding() []float64 { return a.textEmbedding }

// HasAnyEmbedding reports whether at least one modality vector is set.
func (a *Alert) HasAnyEmbedding() bool {
	return len(a.imageEmbedding) > 0 || len(a.textEmbedding) > 0
}

// CreatedBy returns the reporting user's identifier.
func (a *Alert) CreatedBy() string { return a.createdBy }

// CreatedAt returns the creation time.
func (a *Alert) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last mutation time (zero if never mutated).
func (a *Alert) UpdatedAt() time.Time { return a.updatedAt }

// SetID sets the store-assigned identifier (repository use).
func (a *Alert) SetID(id string) { a.id = id }

// SetImageEmbedding attaches the image vector (ingestion use).
func (a *Alert) SetImageEmbedding(v []float64) { a.imageEmbedding = v }

// SetTextEmbedding attaches the text vector (ingestion use).
func (a *Alert) SetTextEmbedding(v []float64) { a.textEmbedding = v }

// Resolved returns a copy marked inactive at the given time. Embeddings
// are unchanged.
func (a *Alert) Resolved(now time.Time) Alert {
	c := *a
	c.isActive = false
	c.updatedAt = now
	return c
}
