package alignment

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// Scale limits for the adjustment slider.
const (
	MinScale = 0.5
	MaxScale = 4.0
)

// Axis selects the coordinate edited by SetRawCorner.
type Axis string

const (
	AxisLng Axis = "lng"
	AxisLat Axis = "lat"
)

// MarkerColors are the marker colours for the top-left, top-right,
// bottom-right and bottom-left corners.
var MarkerColors = [domain.CornerCount]string{"#ff3b30", "#34c759", "#007aff", "#ffcc00"}

// State is the transient alignment state of one editing session.
type State struct {
	ImageRef string         `json:"image_ref"`
	Raw      domain.Corners `json:"raw_corners"`
	Scale    float64        `json:"scale"`
	Rotation float64        `json:"rotation"`
	FlipH    bool           `json:"flip_h"`
	FlipV    bool           `json:"flip_v"`
	Opacity  float64        `json:"opacity"`
}

// Marker is a draggable handle placed on one final corner.
type Marker struct {
	Role     int       `json:"role"`
	Color    string    `json:"color"`
	Position orb.Point `json:"position"`
}

// Controller owns the alignment state and keeps the final corners in sync
// with it. Every mutation recomputes
//
//	final = Adjust(Flip(Canonicalize(raw), flipH, flipV), scale, rotation)
//
// A Controller is not safe for concurrent use.
type Controller struct {
	state     State
	final     domain.Corners
	projector Projector
}

// NewController seeds a controller from a persisted config. Saved corners
// already carry their flip, so the flip is recovered from their order and
// combined with the stored flags.
func NewController(cfg domain.MapConfig, p Projector) *Controller {
	flipH, flipV := cfg.FlipH, cfg.FlipV
	if h, v, ok := InferFlip(cfg.Corners); ok {
		flipH, flipV = h != cfg.FlipH, v != cfg.FlipV
	}
	opacity := cfg.Opacity
	if !finite(opacity) {
		opacity = 1
	}
	c := &Controller{
		state: State{
			ImageRef: cfg.ImageRef,
			Raw:      cfg.Corners,
			Scale:    1,
			FlipH:    flipH,
			FlipV:    flipV,
			Opacity:  clamp(opacity, 0, 1),
		},
		projector: p,
	}
	c.recompute()
	return c
}

// Clone returns an independent copy sharing the same projector.
func (c *Controller) Clone() *Controller {
	cp := *c
	return &cp
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Final returns the corners the overlay is displayed with.
func (c *Controller) Final() domain.Corners { return c.final }

// Bounds returns the box a viewer fits to when the overlay loads.
func (c *Controller) Bounds() orb.Bound { return c.final.Bound() }

// Markers returns one marker per final corner in role order.
func (c *Controller) Markers() []Marker {
	out := make([]Marker, domain.CornerCount)
	for i, p := range c.final {
		out[i] = Marker{Role: i, Color: MarkerColors[i], Position: p}
	}
	return out
}

// SetProjector swaps the projector, e.g. after the viewport changes.
func (c *Controller) SetProjector(p Projector) {
	c.projector = p
	c.recompute()
}

// SetImage replaces the image reference. Corners are left untouched.
func (c *Controller) SetImage(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return &domain.ConfigurationError{Field: "image_ref", Reason: "is required"}
	}
	c.state.ImageRef = ref
	return nil
}

// SetRawCorner edits one coordinate of a raw corner. Scale and rotation
// are reset.
func (c *Controller) SetRawCorner(index int, axis Axis, value float64) error {
	if index < 0 || index >= domain.CornerCount {
		return &domain.ConfigurationError{Field: "corner", Reason: fmt.Sprintf("index %d out of range", index)}
	}
	if !finite(value) {
		return &domain.ConfigurationError{Field: "corner", Reason: "value must be a finite number"}
	}
	switch axis {
	case AxisLng:
		c.state.Raw[index][0] = value
	case AxisLat:
		c.state.Raw[index][1] = value
	default:
		return &domain.ConfigurationError{Field: "axis", Reason: fmt.Sprintf("unknown axis %q", axis)}
	}
	c.resetAdjustment()
	return nil
}

// SetRawCorners replaces all raw corners with four points in any order.
// Scale and rotation are reset.
func (c *Controller) SetRawCorners(pts []orb.Point) error {
	corners, err := domain.CornersFromPoints(pts)
	if err != nil {
		return err
	}
	c.state.Raw = corners
	c.resetAdjustment()
	return nil
}

// DragMarkers replaces the displayed corners after a marker drag. The
// positions are in role order as displayed; the current flip is undone so
// the next recompute puts every marker where it was dropped.
func (c *Controller) DragMarkers(positions []orb.Point) error {
	corners, err := domain.CornersFromPoints(positions)
	if err != nil {
		return err
	}
	c.state.Raw = Flip(corners, c.state.FlipH, c.state.FlipV)
	c.resetAdjustment()
	return nil
}

// DragMarker moves a single marker, keeping the others where they are.
func (c *Controller) DragMarker(role int, pos orb.Point) error {
	if role < 0 || role >= domain.CornerCount {
		return &domain.ConfigurationError{Field: "marker", Reason: fmt.Sprintf("role %d out of range", role)}
	}
	positions := make([]orb.Point, domain.CornerCount)
	copy(positions, c.final[:])
	positions[role] = pos
	return c.DragMarkers(positions)
}

// SetScale sets the uniform scale factor, clamped to [MinScale, MaxScale].
func (c *Controller) SetScale(v float64) error {
	if !finite(v) {
		return &domain.ConfigurationError{Field: "scale", Reason: "must be a finite number"}
	}
	c.state.Scale = clamp(v, MinScale, MaxScale)
	c.recompute()
	return nil
}

// SetRotation sets the rotation in degrees, normalised to [-180, 180].
func (c *Controller) SetRotation(deg float64) error {
	if !finite(deg) {
		return &domain.ConfigurationError{Field: "rotation", Reason: "must be a finite number"}
	}
	c.state.Rotation = math.Remainder(deg, 360)
	c.recompute()
	return nil
}

// SetFlipHorizontal toggles left/right mirroring.
func (c *Controller) SetFlipHorizontal(on bool) {
	c.state.FlipH = on
	c.recompute()
}

// SetFlipVertical toggles top/bottom mirroring.
func (c *Controller) SetFlipVertical(on bool) {
	c.state.FlipV = on
	c.recompute()
}

// SetOpacity sets overlay opacity, clamped to [0, 1].
func (c *Controller) SetOpacity(v float64) error {
	if !finite(v) {
		return &domain.ConfigurationError{Field: "opacity", Reason: "must be a finite number"}
	}
	c.state.Opacity = clamp(v, 0, 1)
	return nil
}

// Commit bakes the current adjustment into the raw corners and returns the
// config to persist. The returned corners are the final corners in role
// order with the flip already applied, so FlipH and FlipV are false. The
// controller keeps its own flip flags because raw corners are
// re-canonicalized on every recompute.
func (c *Controller) Commit(projectID string) domain.MapConfig {
	cfg := domain.MapConfig{
		ProjectID: projectID,
		ImageRef:  c.state.ImageRef,
		Corners:   c.final,
		Opacity:   c.state.Opacity,
	}
	c.state.Raw = c.final
	c.resetAdjustment()
	return cfg
}

func (c *Controller) resetAdjustment() {
	c.state.Scale = 1
	c.state.Rotation = 0
	c.recompute()
}

func (c *Controller) recompute() {
	flipped := Flip(Canonicalize(c.state.Raw), c.state.FlipH, c.state.FlipV)
	c.final = Adjust(flipped, c.state.Scale, c.state.Rotation, c.projector)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
