package alert

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"time"

	domalert "github.com/pawtrace/pawtrace/internal/domain/alert"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
)

// Hash field names. The loc field holds the float32 ECEF vector the FT
// index KNNs over; image_vec and text_vec hold float64 blobs that only
// the ranking engine reads.
const (
	fieldPetID       = "pet_id"
	fieldType        = "alert_type"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldSpecies     = "species"
	fieldContactInfo = "contact_info"
	fieldPhotos      = "photos"
	fieldLat         = "lat"
	fieldLon         = "lon"
	fieldLoc         = "loc"
	fieldIsActive    = "is_active"
	fieldHasImage    = "has_image"
	fieldHasText     = "has_text"
	fieldImageVec    = "image_vec"
	fieldTextVec     = "text_vec"
	fieldCreatedBy   = "created_by"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// buildHashFields converts an Alert into a flat map[string]string for HSET.
func buildHashFields(a *domalert.Alert) map[string]string {
	m := map[string]string{
		fieldPetID:       a.PetID(),
		fieldType:        string(a.Type()),
		fieldTitle:       a.Title(),
		fieldDescription: a.Description(),
		fieldSpecies:     a.Species(),
		fieldContactInfo: a.ContactInfo(),
		fieldIsActive:    boolFlag(a.IsActive()),
		fieldHasImage:    boolFlag(len(a.ImageEmbedding()) > 0),
		fieldHasText:     boolFlag(len(a.TextEmbedding()) > 0),
		fieldCreatedBy:   a.CreatedBy(),
		fieldCreatedAt:   strconv.FormatInt(a.CreatedAt().UnixMilli(), 10),
	}

	if photos := a.PhotoURLs(); len(photos) > 0 {
		if data, err := json.Marshal(photos); err == nil {
			m[fieldPhotos] = string(data)
		}
	}

	if p := a.Location(); p != nil {
		m[fieldLat] = strconv.FormatFloat(p.Lat, 'f', -1, 64)
		m[fieldLon] = strconv.FormatFloat(p.Lon, 'f', -1, 64)
		m[fieldLoc] = vec32ToBytes(p.ToVector())
	}

	if v := a.ImageEmbedding(); len(v) > 0 {
		m[fieldImageVec] = vec64ToBytes(v)
	}
	if v := a.TextEmbedding(); len(v) > 0 {
		m[fieldTextVec] = vec64ToBytes(v)
	}

	if !a.UpdatedAt().IsZero() {
		m[fieldUpdatedAt] = strconv.FormatInt(a.UpdatedAt().UnixMilli(), 10)
	}

	return m
}

// parseHashFields converts a flat hash map back into an Alert.
func parseHashFields(id string, m map[string]string) domalert.Alert {
	var photos []string
	if raw := m[fieldPhotos]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &photos)
	}

	var location *geo.Point
	latStr, lonStr := m[fieldLat], m[fieldLon]
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr == nil && lonErr == nil {
			location = &geo.Point{Lat: lat, Lon: lon}
		}
	}

	return domalert.Reconstruct(
		id,
		m[fieldPetID],
		domalert.Type(m[fieldType]),
		m[fieldTitle],
		m[fieldDescription],
		m[fieldSpecies],
		m[fieldContactInfo],
		photos,
		location,
		m[fieldIsActive] == "1",
		bytesToVec64(m[fieldImageVec]),
		bytesToVec64(m[fieldTextVec]),
		m[fieldCreatedBy],
		parseMillis(m[fieldCreatedAt]),
		parseMillis(m[fieldUpdatedAt]),
	)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseMillis(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// vec32ToBytes serializes []float32 to a binary string (4 bytes per
// float, little-endian) matching the FT vector field encoding.
func vec32ToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// vec64ToBytes serializes []float64 to a binary string (8 bytes per
// float, little-endian). Modality embeddings keep full precision since
// the fusion math runs in float64.
func vec64ToBytes(v []float64) string {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return string(buf)
}

// bytesToVec64 deserializes a binary string back to []float64. Returns
// nil for empty or malformed input.
func bytesToVec64(s string) []float64 {
	if s == "" || len(s)%8 != 0 {
		return nil
	}
	b := []byte(s)
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}
