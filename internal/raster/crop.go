package raster

import "image"

// Crop copies r out of src into a new zero-origin image. Parts of r outside
// src stay transparent. Pixels are copied verbatim, colour under zero alpha
// included.
func Crop(src *image.NRGBA, r image.Rectangle) *image.NRGBA {
	dst := New(r.Dx(), r.Dy())
	in := r.Intersect(src.Bounds())
	if in.Empty() {
		return dst
	}
	rowBytes := in.Dx() * 4
	for y := in.Min.Y; y < in.Max.Y; y++ {
		si := src.PixOffset(in.Min.X, y)
		di := dst.PixOffset(in.Min.X-r.Min.X, y-r.Min.Y)
		copy(dst.Pix[di:di+rowBytes], src.Pix[si:si+rowBytes])
	}
	return dst
}

// Paste copies src verbatim into dst at pos, clipped to dst.
func Paste(src, dst *image.NRGBA, pos image.Point) {
	r := image.Rectangle{Min: pos, Max: pos.Add(Size(src))}.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	rowBytes := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X-pos.X, y-pos.Y)
		di := dst.PixOffset(r.Min.X, y)
		copy(dst.Pix[di:di+rowBytes], src.Pix[si:si+rowBytes])
	}
}
