package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Filter selects the resampling kernel used by Scale.
type Filter int

const (
	Nearest Filter = iota
	Bilinear
)

// Scale resamples src to w x h. Scaling to the same size returns a copy.
func Scale(src *image.NRGBA, w, h int, f Filter) *image.NRGBA {
	if w <= 0 || h <= 0 {
		return New(0, 0)
	}
	if Size(src) == image.Pt(w, h) {
		return Clone(src)
	}
	dst := New(w, h)
	var k draw.Interpolator = draw.NearestNeighbor
	if f == Bilinear {
		k = draw.ApproxBiLinear
	}
	k.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
