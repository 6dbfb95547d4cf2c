package entities

import (
	"fmt"
	"math"

	"github.com/zatekoja/roadsideassist/pkg/geo"
)

// GeoPoint represents geographical coordinates in degrees.
//
// It is the only in-memory representation of a location. Storage backends that
// keep coordinates in [longitude, latitude] order convert at their boundary
// through StorageCoordinates / GeoPointFromStorage.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// Validate checks that both coordinates are within range
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// IsSentinel reports whether the point is the all-zero placeholder stored for
// partners that never set a location.
func (p GeoPoint) IsSentinel() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// Rankable reports whether the point can take part in proximity ranking.
func (p GeoPoint) Rankable() bool {
	return !p.IsSentinel() && p.Validate() == nil
}

// DistanceTo returns the great-circle distance to other in kilometers
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	return geo.DistanceKm(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}

// Bounds returns the envelope of the circle of radiusKm around p
func (p GeoPoint) Bounds(radiusKm float64) geo.Bounds {
	return geo.BoundsAround(p.Latitude, p.Longitude, radiusKm)
}

// StorageCoordinates returns the point in [longitude, latitude] order.
func (p GeoPoint) StorageCoordinates() [2]float64 {
	return [2]float64{p.Longitude, p.Latitude}
}

// GeoPointFromStorage converts a [longitude, latitude] pair.
func GeoPointFromStorage(coords [2]float64) GeoPoint {
	return GeoPoint{Latitude: coords[1], Longitude: coords[0]}
}
