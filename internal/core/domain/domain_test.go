package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

func TestCorners_JSONShape(t *testing.T) {
	c := domain.Corners{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[[1,2],[3,4],[5,6],[7,8]]" {
		t.Errorf("unexpected encoding %s", data)
	}

	var back domain.Corners
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != c {
		t.Errorf("expected %v, got %v", c, back)
	}
}

func TestCorners_UnmarshalRejectsWrongCount(t *testing.T) {
	var c domain.Corners
	err := json.Unmarshal([]byte("[[1,2],[3,4],[5,6]]"), &c)

	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestCornersFromPoints(t *testing.T) {
	if _, err := domain.CornersFromPoints([]orb.Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}}); err == nil {
		t.Error("expected error for five points")
	}
	if _, err := domain.CornersFromPoints([]orb.Point{{1, 1}, {2, math.Inf(1)}, {3, 3}, {4, 4}}); err == nil {
		t.Error("expected error for infinite coordinate")
	}
	c, err := domain.CornersFromPoints([]orb.Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c[domain.BottomLeft] != (orb.Point{4, 4}) {
		t.Errorf("unexpected bottom-left %v", c[domain.BottomLeft])
	}
}

func TestMapConfig_Validate(t *testing.T) {
	valid := domain.DefaultMapConfig("p1", "")
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*domain.MapConfig)
	}{
		{"missing project", func(m *domain.MapConfig) { m.ProjectID = "" }},
		{"missing image", func(m *domain.MapConfig) { m.ImageRef = "" }},
		{"opacity above one", func(m *domain.MapConfig) { m.Opacity = 1.5 }},
		{"opacity NaN", func(m *domain.MapConfig) { m.Opacity = math.NaN() }},
		{"bad corner", func(m *domain.MapConfig) { m.Corners[2][0] = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			var cfgErr *domain.ConfigurationError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestDefaultMapConfig(t *testing.T) {
	cfg := domain.DefaultMapConfig("p1", "layouts/site.png")
	if cfg.ImageRef != "layouts/site.png" || !cfg.IsDefault || cfg.Opacity != 1 {
		t.Errorf("unexpected default %+v", cfg)
	}
	if cfg.Corners != domain.DefaultCorners {
		t.Error("expected default corners")
	}
	if d := domain.DefaultMapConfig("p1", ""); d.ImageRef != domain.DefaultImageRef {
		t.Errorf("expected %s, got %s", domain.DefaultImageRef, d.ImageRef)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&domain.PersistenceError{Op: "save", ProjectID: "p1", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("expected PersistenceError to unwrap")
	}
	err = &domain.ResolutionError{Ref: "s3:x", Err: domain.ErrNotFound}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected ResolutionError to unwrap")
	}
}
