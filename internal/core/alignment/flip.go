package alignment

import "github.com/plotperfect/plotmap/internal/core/domain"

var (
	flipHorizontal = [domain.CornerCount]int{1, 0, 3, 2}
	flipVertical   = [domain.CornerCount]int{3, 2, 1, 0}
)

// Flip mirrors the image by permuting which corner plays which role.
// Horizontal swaps left and right, vertical swaps top and bottom; both
// applied together rotate roles by 180 degrees. Flip is its own inverse.
func Flip(c domain.Corners, horizontal, vertical bool) domain.Corners {
	if horizontal {
		c = permute(c, flipHorizontal)
	}
	if vertical {
		c = permute(c, flipVertical)
	}
	return c
}

// InferFlip reports which flip, applied to the canonical order of c,
// reproduces c exactly. ok is false when c is not a flip of its canonical
// order, e.g. when corners were stored unordered.
func InferFlip(c domain.Corners) (horizontal, vertical, ok bool) {
	canonical := Canonicalize(c)
	for _, h := range []bool{false, true} {
		for _, v := range []bool{false, true} {
			if Flip(canonical, h, v) == c {
				return h, v, true
			}
		}
	}
	return false, false, false
}

func permute(c domain.Corners, order [domain.CornerCount]int) domain.Corners {
	var out domain.Corners
	for i, j := range order {
		out[i] = c[j]
	}
	return out
}
