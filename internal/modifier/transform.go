package modifier

import (
	"image"
	"strings"

	"voxel-assets/internal/raster"
)

// Dihedral transforms of a square, numbered as in [transformN.
const (
	TransformIdentity = 0 // I
	TransformR90      = 1 // rotate 90° counter-clockwise
	TransformR180     = 2
	TransformR270     = 3
	TransformFX       = 4 // flip x
	TransformFXR90    = 5 // flip x, then R90
	TransformFY       = 6 // flip y
	TransformFYR90    = 7 // flip y, then R90
)

var transformNames = [8]string{"i", "r90", "r180", "r270", "fx", "", "fy", ""}

// ParseTransform reads a run of transform digits and names (case-insensitive)
// and multiplies them in the dihedral group. It stops at the first byte it
// does not understand and returns the unread rest.
func ParseTransform(s string) (int, string) {
	total := 0
	pos := 0
	for pos < len(s) {
		t := -1
		for i := 7; i >= 0; i-- {
			if s[pos] == byte('0'+i) {
				t, pos = i, pos+1
				break
			}
			name := transformNames[i]
			if name != "" && len(s)-pos >= len(name) && strings.EqualFold(s[pos:pos+len(name)], name) {
				t, pos = i, pos+len(name)
				break
			}
		}
		if t < 0 {
			break
		}
		total = ComposeTransforms(total, t)
	}
	return total, s[pos:]
}

// ComposeTransforms returns the transform equal to applying a and then b.
func ComposeTransforms(a, b int) int {
	var n int
	if b < 4 {
		n = (b + a) % 4
	} else {
		n = (b - a + 8) % 4
	}
	if (b >= 4) != (a >= 4) {
		n += 4
	}
	return n
}

// Transform returns src transformed by t. Odd transforms swap width and
// height.
func Transform(src *image.NRGBA, t int) *image.NRGBA {
	t &= 7
	if t == TransformIdentity {
		return src
	}
	ss := raster.Size(src)
	dw, dh := ss.X, ss.Y
	if t%2 == 1 {
		dw, dh = dh, dw
	}
	dst := raster.New(dw, dh)
	for dy := 0; dy < dh; dy++ {
		for dx := 0; dx < dw; dx++ {
			var sx, sy int
			switch t {
			case TransformR90:
				sx, sy = dh-1-dy, dx
			case TransformR180:
				sx, sy = dw-1-dx, dh-1-dy
			case TransformR270:
				sx, sy = dy, dw-1-dx
			case TransformFX:
				sx, sy = dw-1-dx, dy
			case TransformFXR90:
				sx, sy = dy, dx
			case TransformFY:
				sx, sy = dx, dh-1-dy
			case TransformFYR90:
				sx, sy = dh-1-dy, dw-1-dx
			}
			si, di := src.PixOffset(sx, sy), dst.PixOffset(dx, dy)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
