// Package alignment positions a raster image over a map from four corner
// coordinates, including role assignment, mirroring and affine adjustment.
package alignment

import (
	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// Canonicalize assigns corner roles to four points given in any order.
//
// With sum = lng+lat and diff = lat-lng, the top-left corner maximises diff,
// bottom-right minimises it, top-right maximises sum and bottom-left
// minimises it. Ties go to the earliest point. For strongly rotated or
// degenerate inputs two roles may land on the same point; the result is
// still deterministic.
func Canonicalize(pts domain.Corners) domain.Corners {
	tl, tr, br, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if diff(p) > diff(tl) {
			tl = p
		}
		if diff(p) < diff(br) {
			br = p
		}
		if sum(p) > sum(tr) {
			tr = p
		}
		if sum(p) < sum(bl) {
			bl = p
		}
	}
	return domain.Corners{tl, tr, br, bl}
}

func sum(p orb.Point) float64  { return p.Lon() + p.Lat() }
func diff(p orb.Point) float64 { return p.Lat() - p.Lon() }
