package geo

import "math"

// LngRange is an inclusive longitude interval in degrees.
type LngRange struct {
	Min float64
	Max float64
}

// Bounds is a latitude/longitude envelope that contains every point within a
// radius of a center. It over-selects near the corners; callers re-check the
// exact distance.
type Bounds struct {
	MinLat float64
	MaxLat float64
	// LngRanges holds one range, or two when the envelope crosses the antimeridian.
	LngRanges []LngRange
}

// BoundsAround computes the envelope of the circle of radiusKm around (lat, lng).
func BoundsAround(lat, lng, radiusKm float64) Bounds {
	angular := radiusKm / EarthRadiusKm
	latRad := degreesToRadians(lat)

	minLat := radiansToDegrees(latRad - angular)
	maxLat := radiansToDegrees(latRad + angular)

	// The circle contains a pole: every longitude qualifies.
	if maxLat >= 90 || minLat <= -90 || angular >= math.Pi/2 {
		return Bounds{
			MinLat:    math.Max(minLat, -90),
			MaxLat:    math.Min(maxLat, 90),
			LngRanges: []LngRange{{Min: -180, Max: 180}},
		}
	}

	deltaLng := radiansToDegrees(math.Asin(math.Sin(angular) / math.Cos(latRad)))
	minLng := lng - deltaLng
	maxLng := lng + deltaLng

	b := Bounds{MinLat: minLat, MaxLat: maxLat}
	switch {
	case minLng < -180:
		b.LngRanges = []LngRange{{Min: minLng + 360, Max: 180}, {Min: -180, Max: maxLng}}
	case maxLng > 180:
		b.LngRanges = []LngRange{{Min: minLng, Max: 180}, {Min: -180, Max: maxLng - 360}}
	default:
		b.LngRanges = []LngRange{{Min: minLng, Max: maxLng}}
	}
	return b
}

// Contains reports whether the point falls inside the envelope.
func (b Bounds) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges {
		if lng >= r.Min && lng <= r.Max {
			return true
		}
	}
	return false
}
