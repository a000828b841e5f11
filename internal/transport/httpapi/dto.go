package httpapi

import (
	"time"

	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	healthuc "github.com/pawtrace/pawtrace/internal/usecase/health"
)

type alertResponse struct {
	ID                string           `json:"id"`
	PetID             string           `json:"pet_id,omitempty"`
	AlertType         string           `json:"alert_type"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Species           string           `json:"species,omitempty"`
	ContactInfo       string           `json:"contact_info"`
	PhotoURLs         []string         `json:"photo_urls,omitempty"`
	Location          *locationPayload `json:"location,omitempty"`
	IsActive          bool             `json:"is_active"`
	HasImageEmbedding bool             `json:"has_image_embedding"`
	HasTextEmbedding  bool             `json:"has_text_embedding"`
	CreatedBy         string           `json:"created_by,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at,omitempty"`
}

type alertListResponse struct {
	Items []alertResponse `json:"items"`
	Count int             `json:"count"`
}

type nearItem struct {
	alertResponse
	DistanceM float64 `json:"distance_m"`
}

type nearListResponse struct {
	Items []nearItem `json:"items"`
	Count int        `json:"count"`
}

type matchItem struct {
	alertResponse
	Score float64 `json:"score"`
}

type matchListResponse struct {
	Items []matchItem `json:"items"`
	Count int         `json:"count"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

func alertToResponse(a *domalert.Alert) alertResponse {
	resp := alertResponse{
		ID:                a.ID(),
		PetID:             a.PetID(),
		AlertType:         string(a.Type()),
		Title:             a.Title(),
		Description:       a.Description(),
		Species:           a.Species(),
		ContactInfo:       a.ContactInfo(),
		PhotoURLs:         a.PhotoURLs(),
		IsActive:          a.IsActive(),
		HasImageEmbedding: len(a.ImageEmbedding()) > 0,
		HasTextEmbedding:  len(a.TextEmbedding()) > 0,
		CreatedBy:         a.CreatedBy(),
		CreatedAt:         a.CreatedAt().UTC(),
	}

	if loc := a.Location(); loc != nil {
		resp.Location = &locationPayload{Lat: loc.Lat, Lon: loc.Lon}
	}

	if !a.UpdatedAt().IsZero() {
		t := a.UpdatedAt().UTC()
		resp.UpdatedAt = &t
	}

	return resp
}

func alertsToResponses(alerts []domalert.Alert) []alertResponse {
	items := make([]alertResponse, len(alerts))
	for i := range alerts {
		items[i] = alertToResponse(&alerts[i])
	}
	return items
}
