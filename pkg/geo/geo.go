package geo

import (
	"fmt"
	"math"

	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
)

// earthRadiusMeters is the mean Earth radius used for haversine distance.
const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Validate checks the coordinate against valid WGS84 ranges. Failures carry
// the validation error code so callers surface them as client errors.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinate contains NaN")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("latitude %f out of range [-90, 90]", p.Latitude))
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("longitude %f out of range [-180, 180]", p.Longitude))
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether b lies within radiusMeters of a.
func WithinRadius(a, b Point, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}
