package alignment

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// Projector converts between geographic coordinates and the map's screen
// space. Screen space is assumed locally Euclidean.
type Projector interface {
	Project(orb.Point) orb.Point
	Unproject(orb.Point) orb.Point
}

// Adjust scales and rotates the corners about their screen-space centroid.
// Rotation is in degrees, positive in the screen's rotation sense. Corners
// are returned unchanged when no projector is available or when the
// transform is the identity.
func Adjust(c domain.Corners, scale, rotationDeg float64, p Projector) domain.Corners {
	if p == nil || (scale == 1 && rotationDeg == 0) {
		return c
	}

	var screen [domain.CornerCount]orb.Point
	var cx, cy float64
	for i, pt := range c {
		screen[i] = p.Project(pt)
		cx += screen[i][0]
		cy += screen[i][1]
	}
	cx /= domain.CornerCount
	cy /= domain.CornerCount

	rel := mat.NewDense(2, domain.CornerCount, nil)
	for i, s := range screen {
		rel.Set(0, i, s[0]-cx)
		rel.Set(1, i, s[1]-cy)
	}

	var moved mat.Dense
	moved.Mul(transform(scale, rotationDeg), rel)

	var out domain.Corners
	for i := range out {
		out[i] = p.Unproject(orb.Point{cx + moved.At(0, i), cy + moved.At(1, i)})
	}
	return out
}

// transform returns the 2x2 matrix R(deg)·scale.
func transform(scale, deg float64) *mat.Dense {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	m := mat.NewDense(2, 2, []float64{
		cos, -sin,
		sin, cos,
	})
	m.Scale(scale, m)
	return m
}
