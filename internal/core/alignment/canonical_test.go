package alignment_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
)

func TestCanonicalize_AxisAlignedRectangle(t *testing.T) {
	got := alignment.Canonicalize(domain.Corners{rectBR, rectTL, rectBL, rectTR})
	if got != rect {
		t.Errorf("expected %v, got %v", rect, got)
	}
}

func TestCanonicalize_RoleOrder(t *testing.T) {
	want := domain.Corners{{10, 20}, {20, 20}, {20, 10}, {10, 10}}
	tests := []struct {
		name string
		in   domain.Corners
	}{
		{"top-left first, counter-clockwise", domain.Corners{{10, 20}, {10, 10}, {20, 10}, {20, 20}}},
		{"already ordered", want},
		{"bottom row first", domain.Corners{{10, 10}, {20, 10}, {10, 20}, {20, 20}}},
		{"reversed", domain.Corners{{10, 10}, {20, 10}, {20, 20}, {10, 20}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alignment.Canonicalize(tt.in)
			if got[domain.TopLeft] != (orb.Point{10, 20}) || got[domain.TopRight] != (orb.Point{20, 20}) ||
				got[domain.BottomRight] != (orb.Point{20, 10}) || got[domain.BottomLeft] != (orb.Point{10, 10}) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestCanonicalize_DefaultCorners(t *testing.T) {
	d := domain.DefaultCorners
	want := domain.Corners{d[0], d[3], d[2], d[1]}

	got := alignment.Canonicalize(d)
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCanonicalize_PermutationInvariant(t *testing.T) {
	pts := []orb.Point{rectTL, rectTR, rectBR, rectBL}
	for _, perm := range permutations(4) {
		var in domain.Corners
		for i, j := range perm {
			in[i] = pts[j]
		}
		if got := alignment.Canonicalize(in); got != rect {
			t.Errorf("permutation %v: expected %v, got %v", perm, rect, got)
		}
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	once := alignment.Canonicalize(domain.DefaultCorners)
	if twice := alignment.Canonicalize(once); twice != once {
		t.Errorf("expected %v, got %v", once, twice)
	}
}

func TestCanonicalize_DegenerateIsDeterministic(t *testing.T) {
	p := orb.Point{5, 5}
	in := domain.Corners{p, p, p, p}
	got := alignment.Canonicalize(in)
	if got != in {
		t.Errorf("expected identical points, got %v", got)
	}

	// Collinear input: roles may repeat, but the output is stable.
	line := domain.Corners{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	first := alignment.Canonicalize(line)
	if second := alignment.Canonicalize(line); first != second {
		t.Errorf("expected stable output, got %v then %v", first, second)
	}
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for pos := 0; pos <= len(p); pos++ {
			next := make([]int, 0, n)
			next = append(next, p[:pos]...)
			next = append(next, n-1)
			next = append(next, p[pos:]...)
			out = append(out, next)
		}
	}
	return out
}
