package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Corner roles, used as indexes into Corners.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// CornerCount is the number of corners in an image quadrilateral.
const CornerCount = 4

// Corners is an image quadrilateral in role order: top-left, top-right,
// bottom-right, bottom-left. Each point is [lng, lat].
type Corners [CornerCount]orb.Point

// CornersFromPoints builds Corners from an arbitrary-length slice,
// failing unless exactly four finite points are given.
func CornersFromPoints(pts []orb.Point) (Corners, error) {
	var c Corners
	if len(pts) != CornerCount {
		return c, &ConfigurationError{Field: "corners", Reason: fmt.Sprintf("must have exactly %d corners, got %d", CornerCount, len(pts))}
	}
	copy(c[:], pts)
	if err := c.Validate(); err != nil {
		return Corners{}, err
	}
	return c, nil
}

// Validate reports a ConfigurationError if any coordinate is NaN or infinite.
func (c Corners) Validate() error {
	for i, p := range c {
		if !finite(p[0]) || !finite(p[1]) {
			return &ConfigurationError{Field: fmt.Sprintf("corners[%d]", i), Reason: "coordinates must be finite numbers"}
		}
	}
	return nil
}

// Ring returns the quadrilateral as a closed ring.
func (c Corners) Ring() orb.Ring {
	return orb.Ring{c[0], c[1], c[2], c[3], c[0]}
}

// Polygon returns the quadrilateral as a single-ring polygon.
func (c Corners) Polygon() orb.Polygon {
	return orb.Polygon{c.Ring()}
}

// Bound returns the axis-aligned bounding box of the corners.
func (c Corners) Bound() orb.Bound {
	return c.Ring().Bound()
}

// Slice returns the corners as [][lng, lat] pairs.
func (c Corners) Slice() [][]float64 {
	out := make([][]float64, len(c))
	for i, p := range c {
		out[i] = []float64{p[0], p[1]}
	}
	return out
}

// UnmarshalJSON rejects inputs that do not carry exactly four points.
func (c *Corners) UnmarshalJSON(data []byte) error {
	var pts []orb.Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return &ConfigurationError{Field: "corners", Reason: err.Error()}
	}
	parsed, err := CornersFromPoints(pts)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
