package modifier

import (
	"fmt"
	"image"
	"math"
	"strings"

	"voxel-assets/internal/raster"
)

// Face shading of the inventory cube: cosines of the angle between a fixed
// light and the top, left and right faces.
const (
	ShadeTop   = 1.000000
	ShadeLeft  = 0.836660
	ShadeRight = 0.670820
)

// cubeFace describes how texel (u, v) of a face lands in the cube image:
// its anchor is origin + (xu*u + xv*v, yu*u + yv*v) and every offset of
// the footprint is painted from there.
type cubeFace struct {
	shade     float64
	xu, xv    int
	yu, yv    int
	footprint []image.Point
	origin    func(size int) image.Point
}

var (
	topFootprint = []image.Point{
		{2, 0}, {3, 0}, {4, 0}, {5, 0},
		{0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 1}, {5, 1}, {6, 1}, {7, 1},
		{2, 2}, {3, 2}, {4, 2}, {5, 2},
	}
	leftFootprint = []image.Point{
		{0, 0}, {1, 0},
		{0, 1}, {1, 1}, {2, 1}, {3, 1},
		{0, 2}, {1, 2}, {2, 2}, {3, 2},
		{0, 3}, {1, 3}, {2, 3}, {3, 3},
		{0, 4}, {1, 4}, {2, 4}, {3, 4},
		{2, 5}, {3, 5},
	}
	rightFootprint = []image.Point{
		{2, 0}, {3, 0},
		{0, 1}, {1, 1}, {2, 1}, {3, 1},
		{0, 2}, {1, 2}, {2, 2}, {3, 2},
		{0, 3}, {1, 3}, {2, 3}, {3, 3},
		{0, 4}, {1, 4}, {2, 4}, {3, 4},
		{0, 5}, {1, 5},
	}
)

func cubeFaces() [3]cubeFace {
	return [3]cubeFace{
		{shade: ShadeTop, xu: 4, xv: -4, yu: 2, yv: 2, footprint: topFootprint,
			origin: func(s int) image.Point { return image.Pt(4*(s-1), 0) }},
		{shade: ShadeLeft, xu: 4, xv: 0, yu: 2, yv: 5, footprint: leftFootprint,
			origin: func(s int) image.Point { return image.Pt(0, 2*s) }},
		{shade: ShadeRight, xu: 4, xv: 0, yu: -2, yv: 5, footprint: rightFootprint,
			origin: func(s int) image.Point { return image.Pt(4*s, 4*s-2) }},
	}
}

// [inventorycube{top{left{right
//
// Faces are evaluated as expressions ('&' stands for '^'), scaled to a common
// power-of-two size between 4 and 64 and drawn as an isometric cube on a
// transparent square of nine times that size.
func modInventoryCube(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if base != nil {
		return nil, fmt.Errorf("%w: %q cannot be applied to a base image", ErrInvalidExpression, tok)
	}
	parts := strings.Split(tok, "{")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: %q needs top, left and right faces", ErrInvalidExpression, tok)
	}

	var faces [3]*image.NRGBA
	var firstErr error
	for i, name := range parts[1:] {
		img, err := e.generate(strings.ReplaceAll(name, "&", "^"), depth+1)
		firstErr = cmpErr(firstErr, err)
		faces[i] = img
	}
	return InventoryCube(faces[0], faces[1], faces[2]), firstErr
}

// InventoryCube draws the three faces as an isometric cube.
func InventoryCube(top, left, right *image.NRGBA) *image.NRGBA {
	size := 0
	for _, f := range []*image.NRGBA{top, left, right} {
		s := raster.Size(f)
		size = max(size, s.X, s.Y)
	}
	size = min(max(nextPowerOfTwo(size), 4), 64)

	out := raster.New(9*size, 9*size)
	offset := size / 2
	faces := cubeFaces()
	for i, face := range [3]*image.NRGBA{top, left, right} {
		f := faces[i]
		img := face
		if raster.Size(img) != image.Pt(size, size) {
			img = raster.Scale(img, size, size, raster.Nearest)
		}
		o := f.origin(size).Add(image.Pt(offset, 0))
		for v := 0; v < size; v++ {
			for u := 0; u < size; u++ {
				c := img.NRGBAAt(u, v)
				c.R = shade(c.R, f.shade)
				c.G = shade(c.G, f.shade)
				c.B = shade(c.B, f.shade)
				x := f.xu*u + f.xv*v + o.X
				y := f.yu*u + f.yv*v + o.Y
				for _, d := range f.footprint {
					out.SetNRGBA(x+d.X, y+d.Y, c)
				}
			}
		}
	}
	return out
}

func shade(c uint8, f float64) uint8 {
	return uint8(min(max(math.Round(float64(c)*f), 0), 255))
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
