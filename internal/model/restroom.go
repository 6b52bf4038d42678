package model

import (
	"math"
	"time"
)

// Restroom represents one publicly accessible restroom location.
type Restroom struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Zip       string    `json:"zip"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Hours     string    `json:"hours,omitempty"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddressUnavailable is stored when a source row has no usable address text.
const AddressUnavailable = "Address unavailable"

// ZipUnknown is the sentinel ZIP for records whose source has none.
const ZipUnknown = "00000"

// ValidCoordinates reports whether lat/lon fall inside the geographic range.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Round6 rounds a coordinate to six decimal places, half away from zero.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Round5 rounds a coordinate to five decimal places, half away from zero.
// Five-place keys group records within roughly a meter of each other.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// HasCoordinates reports whether both coordinates are present.
func (r *Restroom) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SetCoordinates rounds lat/lon to storage precision and assigns them.
func (r *Restroom) SetCoordinates(lat, lon float64) {
	la, lo := Round6(lat), Round6(lon)
	r.Latitude = &la
	r.Longitude = &lo
}

// Coords returns the coordinate pair, or zeros when either is missing.
func (r *Restroom) Coords() (lat, lon float64) {
	if !r.HasCoordinates() {
		return 0, 0
	}
	return *r.Latitude, *r.Longitude
}

// ImportRecord is one persisted entry in the import log. Errors holds a
// bounded preview of the row-level problems, not the full list.
type ImportRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Format     string    `json:"format"`
	Created    int       `json:"created"`
	ErrorCount int       `json:"error_count"`
	Errors     []string  `json:"errors,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}
