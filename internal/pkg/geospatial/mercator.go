package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// TileSize is the pixel size of a vector map tile.
	TileSize = 512
	// DefaultZoom is used when a caller has no viewport of its own.
	DefaultZoom = 18

	earthRadiusM = 6378137.0
)

// WebMercator projects WGS84 coordinates onto screen pixels at a fixed
// zoom, with y growing downward. Bearing and pitch are not modelled; both
// cancel out for transforms taken about the centroid of a small area.
type WebMercator struct {
	Zoom float64
}

// NewWebMercator returns a projector at zoom, falling back to DefaultZoom
// for non-positive values.
func NewWebMercator(zoom float64) WebMercator {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = DefaultZoom
	}
	return WebMercator{Zoom: zoom}
}

func (w WebMercator) resolution() float64 {
	return 2 * math.Pi * earthRadiusM / (TileSize * math.Exp2(w.Zoom))
}

// Project converts a [lng, lat] point to screen pixels.
func (w WebMercator) Project(p orb.Point) orb.Point {
	m := project.WGS84.ToMercator(p)
	res := w.resolution()
	shift := math.Pi * earthRadiusM
	return orb.Point{(m[0] + shift) / res, (shift - m[1]) / res}
}

// Unproject converts screen pixels back to [lng, lat].
func (w WebMercator) Unproject(p orb.Point) orb.Point {
	res := w.resolution()
	shift := math.Pi * earthRadiusM
	m := orb.Point{p[0]*res - shift, shift - p[1]*res}
	return project.Mercator.ToWGS84(m)
}
