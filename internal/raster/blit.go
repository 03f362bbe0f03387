// Package raster holds the pixel primitives the texture modifiers are built
// from. All images are zero-origin *image.NRGBA; helpers address Pix
// directly for speed.
package raster

import "image"

// New allocates a transparent w x h image.
func New(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// Clone returns a deep copy of img with its origin moved to (0, 0).
func Clone(img *image.NRGBA) *image.NRGBA {
	return Crop(img, img.Bounds())
}

// Size returns the dimensions of img.
func Size(img *image.NRGBA) image.Point {
	return img.Bounds().Size()
}

// Blit composites the size-sized area of src at srcPos onto dst at dstPos
// with source-over alpha. Pixels falling outside either image are skipped.
//
// With d the destination pixel and s the source pixel:
//
//	d.a == 0:  d = s
//	otherwise: d.rgb = (s.rgb*s.a + d.rgb*(255-s.a)) / 255
//	           d.a   = d.a + (255-d.a)*s.a/255
func Blit(src, dst *image.NRGBA, srcPos, dstPos, size image.Point) {
	blit(src, dst, srcPos, dstPos, size, false)
}

// BlitOverlay is Blit restricted to fully opaque destination pixels; other
// destination pixels are left alone.
func BlitOverlay(src, dst *image.NRGBA, srcPos, dstPos, size image.Point) {
	blit(src, dst, srcPos, dstPos, size, true)
}

func blit(src, dst *image.NRGBA, srcPos, dstPos, size image.Point, overlay bool) {
	sb, db := src.Bounds(), dst.Bounds()
	for y := 0; y < size.Y; y++ {
		sy, dy := srcPos.Y+y+sb.Min.Y, dstPos.Y+y+db.Min.Y
		if sy < sb.Min.Y || sy >= sb.Max.Y || dy < db.Min.Y || dy >= db.Max.Y {
			continue
		}
		for x := 0; x < size.X; x++ {
			sx, dx := srcPos.X+x+sb.Min.X, dstPos.X+x+db.Min.X
			if sx < sb.Min.X || sx >= sb.Max.X || dx < db.Min.X || dx >= db.Max.X {
				continue
			}
			si := src.PixOffset(sx, sy)
			di := dst.PixOffset(dx, dy)
			blendPixel(src.Pix[si:si+4:si+4], dst.Pix[di:di+4:di+4], overlay)
		}
	}
}

func blendPixel(s, d []uint8, overlay bool) {
	da := uint32(d[3])
	if overlay && da != 255 {
		return
	}
	if da == 0 {
		copy(d, s)
		return
	}
	sa := uint32(s[3])
	if sa == 0 {
		return
	}
	for c := 0; c < 3; c++ {
		d[c] = uint8((uint32(s[c])*sa + uint32(d[c])*(255-sa) + 127) / 255)
	}
	d[3] = uint8(da + (255-da)*sa/255)
}

// Over composites src onto dst at the origin using Blit.
func Over(src, dst *image.NRGBA) {
	Blit(src, dst, image.Point{}, image.Point{}, Size(src))
}
