package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

// MinRadiusKm is the floor for a viewport-derived search radius.
const MinRadiusKm = 0.1

func toPoint(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Distance returns the great-circle distance in meters between two points.
func Distance(a, b domain.Coordinate) float64 {
	return geo.DistanceHaversine(toPoint(a), toPoint(b))
}

// Diagonal returns the corner-to-corner distance of a bounding box in meters.
func Diagonal(b domain.Bounds) float64 {
	return Distance(b.SouthWest, b.NorthEast)
}

// Center returns the midpoint of a bounding box.
func Center(b domain.Bounds) domain.Coordinate {
	mid := orb.Bound{Min: toPoint(b.SouthWest), Max: toPoint(b.NorthEast)}.Center()
	return domain.Coordinate{Lat: mid[1], Lng: mid[0]}
}

// RadiusFromBounds derives the effective search radius of a viewport: half
// its diagonal in kilometers, rounded to one decimal, floored at MinRadiusKm.
func RadiusFromBounds(b domain.Bounds) float64 {
	km := Diagonal(b) / 2 / 1000
	rounded := math.Round(km*10) / 10
	if rounded < MinRadiusKm {
		return MinRadiusKm
	}
	return rounded
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters. Used on bootstrap to synthesize a viewport from a stored
// center+radius pair.
func BoundingBox(c domain.Coordinate, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	lngDelta := radiusMeters / (111320.0 * math.Cos(c.Lat*math.Pi/180))

	return domain.Bounds{
		SouthWest: domain.Coordinate{Lat: c.Lat - latDelta, Lng: c.Lng - lngDelta},
		NorthEast: domain.Coordinate{Lat: c.Lat + latDelta, Lng: c.Lng + lngDelta},
	}
}
