package alignment_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
)

func newRectController(p alignment.Projector) *alignment.Controller {
	return alignment.NewController(domain.MapConfig{
		ProjectID: "p1",
		ImageRef:  "s3:project-maps/a.png",
		Corners:   rect,
		Opacity:   0.8,
	}, p)
}

// assertPipeline checks that final corners are derived from the state.
func assertPipeline(t *testing.T, c *alignment.Controller, p alignment.Projector) {
	t.Helper()
	s := c.State()
	want := alignment.Adjust(alignment.Flip(alignment.Canonicalize(s.Raw), s.FlipH, s.FlipV), s.Scale, s.Rotation, p)
	if got := c.Final(); got != want {
		t.Fatalf("final corners out of sync: expected %v, got %v", want, got)
	}
}

func TestController_DefaultConfig(t *testing.T) {
	cfg := domain.DefaultMapConfig("p1", "")
	c := alignment.NewController(*cfg, nil)

	d := domain.DefaultCorners
	want := domain.Corners{d[0], d[3], d[2], d[1]}
	if got := c.Final(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	s := c.State()
	if s.FlipH || s.FlipV {
		t.Errorf("expected no flip, got h=%v v=%v", s.FlipH, s.FlipV)
	}
	if s.ImageRef != domain.DefaultImageRef {
		t.Errorf("expected %s, got %s", domain.DefaultImageRef, s.ImageRef)
	}
	if s.Scale != 1 || s.Rotation != 0 || s.Opacity != 1 {
		t.Errorf("unexpected adjustment state %+v", s)
	}
}

func TestController_FlipHorizontal(t *testing.T) {
	c := newRectController(nil)
	c.SetFlipHorizontal(true)

	want := domain.Corners{rectTR, rectTL, rectBL, rectBR}
	if got := c.Final(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestController_RawEditResetsAdjustment(t *testing.T) {
	p := linearProjector{k: 1000}
	c := newRectController(p)
	if err := c.SetScale(1.5); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRotation(30); err != nil {
		t.Fatal(err)
	}

	if err := c.SetRawCorner(0, alignment.AxisLng, 9.9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := c.State()
	if s.Scale != 1 || s.Rotation != 0 {
		t.Errorf("expected scale=1 rotation=0, got %v %v", s.Scale, s.Rotation)
	}
	if s.Raw[0][0] != 9.9 {
		t.Errorf("expected raw lng 9.9, got %v", s.Raw[0][0])
	}
	assertPipeline(t, c, p)
}

func TestController_PipelineHoldsAfterEveryMutation(t *testing.T) {
	p := linearProjector{k: 1000}
	c := newRectController(p)

	steps := []func() error{
		func() error { return c.SetScale(2) },
		func() error { c.SetFlipVertical(true); return nil },
		func() error { return c.SetRotation(-45) },
		func() error { c.SetFlipHorizontal(true); return nil },
		func() error { return c.SetRawCorner(2, alignment.AxisLat, 19.9) },
		func() error { return c.SetScale(0.7) },
		func() error { return c.SetOpacity(0.3) },
		func() error { c.SetProjector(linearProjector{k: 10}); p = linearProjector{k: 10}; return nil },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertPipeline(t, c, p)
	}
}

func TestController_DragRoundTrip(t *testing.T) {
	for _, h := range []bool{false, true} {
		for _, v := range []bool{false, true} {
			c := newRectController(nil)
			c.SetFlipHorizontal(h)
			c.SetFlipVertical(v)
			before := c.Final()

			if err := c.DragMarkers(before[:]); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := c.Final(); got != before {
				t.Errorf("h=%v v=%v: expected %v, got %v", h, v, before, got)
			}
		}
	}
}

func TestController_DragMovesMarker(t *testing.T) {
	c := newRectController(nil)
	c.SetFlipHorizontal(true)
	if err := c.SetScale(2); err != nil {
		t.Fatal(err)
	}

	target := orb.Point{10.9, 20.55}
	if err := c.DragMarker(domain.TopLeft, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := c.Final()[domain.TopLeft]; got != target {
		t.Errorf("expected marker at %v, got %v", target, got)
	}
	if s := c.State(); s.Scale != 1 || s.Rotation != 0 {
		t.Errorf("expected drag to reset adjustment, got scale=%v rotation=%v", s.Scale, s.Rotation)
	}
}

func TestController_DragRequiresFourCorners(t *testing.T) {
	c := newRectController(nil)
	before := c.State()

	err := c.DragMarkers([]orb.Point{{1, 1}, {2, 2}, {3, 3}})
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if c.State() != before {
		t.Error("expected state unchanged after rejected drag")
	}
}

func TestController_RejectsNonFiniteInput(t *testing.T) {
	c := newRectController(nil)
	before := c.State()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"scale", func() error { return c.SetScale(math.NaN()) }},
		{"rotation", func() error { return c.SetRotation(math.Inf(1)) }},
		{"opacity", func() error { return c.SetOpacity(math.NaN()) }},
		{"corner", func() error { return c.SetRawCorner(1, alignment.AxisLat, math.NaN()) }},
		{"corner index", func() error { return c.SetRawCorner(4, alignment.AxisLat, 1) }},
		{"axis", func() error { return c.SetRawCorner(0, alignment.Axis("alt"), 1) }},
		{"image", func() error { return c.SetImage("  ") }},
		{"corners", func() error { return c.SetRawCorners([]orb.Point{{0, 0}, {1, math.NaN()}, {2, 2}, {3, 3}}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfgErr *domain.ConfigurationError
			if err := tt.fn(); !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if c.State() != before {
				t.Error("expected state unchanged")
			}
		})
	}
}

func TestController_Clamping(t *testing.T) {
	c := newRectController(nil)

	tests := []struct {
		name  string
		apply func() error
		get   func(alignment.State) float64
		want  float64
	}{
		{"scale high", func() error { return c.SetScale(10) }, func(s alignment.State) float64 { return s.Scale }, alignment.MaxScale},
		{"scale low", func() error { return c.SetScale(0.1) }, func(s alignment.State) float64 { return s.Scale }, alignment.MinScale},
		{"rotation wraps", func() error { return c.SetRotation(270) }, func(s alignment.State) float64 { return s.Rotation }, -90},
		{"rotation negative", func() error { return c.SetRotation(-190) }, func(s alignment.State) float64 { return s.Rotation }, 170},
		{"opacity high", func() error { return c.SetOpacity(3) }, func(s alignment.State) float64 { return s.Opacity }, 1},
		{"opacity low", func() error { return c.SetOpacity(-1) }, func(s alignment.State) float64 { return s.Opacity }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.apply(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tt.get(c.State()); !nearlyEqual(got, tt.want, 1e-9) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestController_Commit(t *testing.T) {
	p := linearProjector{k: 1000}
	c := newRectController(p)
	c.SetFlipHorizontal(true)
	if err := c.SetScale(1.2); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRotation(10); err != nil {
		t.Fatal(err)
	}
	before := c.Final()

	cfg := c.Commit("p1")

	if cfg.Corners != before {
		t.Errorf("expected committed corners %v, got %v", before, cfg.Corners)
	}
	if cfg.FlipH || cfg.FlipV {
		t.Error("expected flip folded into committed corners")
	}
	if cfg.ProjectID != "p1" || cfg.ImageRef != "s3:project-maps/a.png" || cfg.Opacity != 0.8 {
		t.Errorf("unexpected config %+v", cfg)
	}

	s := c.State()
	if s.Scale != 1 || s.Rotation != 0 {
		t.Errorf("expected adjustment reset, got scale=%v rotation=%v", s.Scale, s.Rotation)
	}
	if !s.FlipH {
		t.Error("expected controller to keep its flip flag")
	}
	if got := c.Final(); got != before {
		t.Errorf("expected display unchanged after commit: %v vs %v", before, got)
	}
}

func TestController_ReloadAfterCommit(t *testing.T) {
	p := linearProjector{k: 1000}
	c := newRectController(p)
	c.SetFlipVertical(true)
	if err := c.SetRotation(-8); err != nil {
		t.Fatal(err)
	}
	cfg := c.Commit("p1")

	reloaded := alignment.NewController(cfg, p)
	if got := reloaded.Final(); got != cfg.Corners {
		t.Errorf("expected reload to display %v, got %v", cfg.Corners, got)
	}
	if s := reloaded.State(); s.FlipH || !s.FlipV {
		t.Errorf("expected recovered vertical flip, got h=%v v=%v", s.FlipH, s.FlipV)
	}
}

func TestController_StoredFlagsCombineWithOrder(t *testing.T) {
	// Canonical corners with a stored flag behave as a plain flip.
	c := alignment.NewController(domain.MapConfig{ImageRef: "x", Corners: rect, FlipH: true, Opacity: 1}, nil)
	want := alignment.Flip(rect, true, false)
	if got := c.Final(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestController_Markers(t *testing.T) {
	c := newRectController(nil)
	markers := c.Markers()
	if len(markers) != 4 {
		t.Fatalf("expected 4 markers, got %d", len(markers))
	}
	for i, m := range markers {
		if m.Role != i || m.Color != alignment.MarkerColors[i] || m.Position != c.Final()[i] {
			t.Errorf("marker %d: unexpected %+v", i, m)
		}
	}
	if markers[domain.TopLeft].Color != "#ff3b30" {
		t.Errorf("expected red top-left marker, got %s", markers[0].Color)
	}
}

func TestController_Bounds(t *testing.T) {
	c := newRectController(nil)
	b := c.Bounds()
	if b.Min != (orb.Point{10, 20}) || b.Max != (orb.Point{11, 20.5}) {
		t.Errorf("unexpected bounds %v", b)
	}
}

func TestController_CloneIsIndependent(t *testing.T) {
	c := newRectController(nil)
	cp := c.Clone()
	cp.SetFlipVertical(true)
	if c.State().FlipV {
		t.Error("expected original unaffected by clone mutation")
	}
}
