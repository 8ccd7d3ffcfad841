package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// EdgeLengths returns the length in meters of each edge of the closed
// polygon through pts, starting with pts[0]→pts[1].
func EdgeLengths(pts ...orb.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		out[i] = Haversine(p.Lat(), p.Lon(), q.Lat(), q.Lon())
	}
	return out
}

// PadBound grows a bounding box by the given distance in meters on every side.
func PadBound(b orb.Bound, meters float64) orb.Bound {
	center := b.Center()
	latDelta := meters / 111320.0
	lonDelta := meters / (111320.0 * math.Cos(toRad(center.Lat())))

	return orb.Bound{
		Min: orb.Point{b.Min.Lon() - lonDelta, b.Min.Lat() - latDelta},
		Max: orb.Point{b.Max.Lon() + lonDelta, b.Max.Lat() + latDelta},
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
