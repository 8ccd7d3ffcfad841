package alignment

import "github.com/plotperfect/plotmap/internal/core/domain"

// RenderState is what a map surface should show for one overlay. The zero
// value means nothing is shown.
type RenderState struct {
	ImageURL string         `json:"image_url,omitempty"`
	Corners  domain.Corners `json:"corners"`
	Opacity  float64        `json:"opacity"`
	Markers  bool           `json:"markers"`
}

// Visible reports whether an overlay is shown.
func (s RenderState) Visible() bool { return s.ImageURL != "" }

// RenderOpKind names a single map surface mutation.
type RenderOpKind string

const (
	OpAddSource      RenderOpKind = "add_source"
	OpRemoveSource   RenderOpKind = "remove_source"
	OpUpdateImage    RenderOpKind = "update_image"
	OpSetCoordinates RenderOpKind = "set_coordinates"
	OpAddLayer       RenderOpKind = "add_layer"
	OpRemoveLayer    RenderOpKind = "remove_layer"
	OpSetOpacity     RenderOpKind = "set_opacity"
	OpAddMarkers     RenderOpKind = "add_markers"
	OpMoveMarkers    RenderOpKind = "move_markers"
	OpRemoveMarkers  RenderOpKind = "remove_markers"
)

// RenderOp is one step a map surface applies to move between states.
type RenderOp struct {
	Kind    RenderOpKind    `json:"op"`
	URL     string          `json:"url,omitempty"`
	Corners *domain.Corners `json:"corners,omitempty"`
	Opacity *float64        `json:"opacity,omitempty"`
}

// Reconcile returns the minimal ops that turn prev into next. An image
// change replaces the source contents in place; a corner change alone
// only moves the coordinates. Teardown removes markers, then the layer,
// then the source.
func Reconcile(prev, next RenderState) []RenderOp {
	var ops []RenderOp

	if !next.Visible() {
		if !prev.Visible() {
			return nil
		}
		if prev.Markers {
			ops = append(ops, RenderOp{Kind: OpRemoveMarkers})
		}
		return append(ops,
			RenderOp{Kind: OpRemoveLayer},
			RenderOp{Kind: OpRemoveSource},
		)
	}

	corners := next.Corners
	opacity := next.Opacity

	if !prev.Visible() {
		ops = append(ops,
			RenderOp{Kind: OpAddSource, URL: next.ImageURL, Corners: &corners},
			RenderOp{Kind: OpAddLayer, Opacity: &opacity},
		)
		if next.Markers {
			ops = append(ops, RenderOp{Kind: OpAddMarkers, Corners: &corners})
		}
		return ops
	}

	cornersChanged := prev.Corners != next.Corners
	switch {
	case prev.ImageURL != next.ImageURL:
		ops = append(ops, RenderOp{Kind: OpUpdateImage, URL: next.ImageURL, Corners: &corners})
	case cornersChanged:
		ops = append(ops, RenderOp{Kind: OpSetCoordinates, Corners: &corners})
	}
	if prev.Opacity != next.Opacity {
		ops = append(ops, RenderOp{Kind: OpSetOpacity, Opacity: &opacity})
	}

	switch {
	case next.Markers && !prev.Markers:
		ops = append(ops, RenderOp{Kind: OpAddMarkers, Corners: &corners})
	case !next.Markers && prev.Markers:
		ops = append(ops, RenderOp{Kind: OpRemoveMarkers})
	case next.Markers && cornersChanged:
		ops = append(ops, RenderOp{Kind: OpMoveMarkers, Corners: &corners})
	}
	return ops
}
