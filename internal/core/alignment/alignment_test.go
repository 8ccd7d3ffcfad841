package alignment_test

import (
	"testing"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// linearProjector maps degrees onto a y-down plane with a uniform scale.
type linearProjector struct{ k float64 }

func (p linearProjector) Project(pt orb.Point) orb.Point {
	return orb.Point{pt[0] * p.k, -pt[1] * p.k}
}

func (p linearProjector) Unproject(pt orb.Point) orb.Point {
	return orb.Point{pt[0] / p.k, -pt[1] / p.k}
}

// countingProjector records how often it is used.
type countingProjector struct {
	linearProjector
	calls int
}

func (p *countingProjector) Project(pt orb.Point) orb.Point {
	p.calls++
	return p.linearProjector.Project(pt)
}

// An axis-aligned rectangle, labelled by role.
var (
	rectTL = orb.Point{10, 20.5}
	rectTR = orb.Point{11, 20.5}
	rectBR = orb.Point{11, 20}
	rectBL = orb.Point{10, 20}
	rect   = domain.Corners{rectTL, rectTR, rectBR, rectBL}
)

func nearlyEqual(a, b, tol float64) bool {
	return scalar.EqualWithinAbs(a, b, tol)
}

func assertCornersNear(t *testing.T, got, want domain.Corners, tol float64) {
	t.Helper()
	for i := range got {
		if !nearlyEqual(got[i][0], want[i][0], tol) || !nearlyEqual(got[i][1], want[i][1], tol) {
			t.Fatalf("corner %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
