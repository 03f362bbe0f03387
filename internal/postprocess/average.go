package postprocess

import (
	"image"
	"image/color"
)

// AverageColor returns the mean colour of the visible pixels of img,
// sampling every step-th pixel so that at most ~16 columns and rows are read
// (step is never below 1). The result is always opaque; an image with no
// visible pixels yields opaque black.
func AverageColor(img *image.NRGBA) color.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	step := 1
	if w > 16 {
		step = w / 16
	}

	var total, tr, tg, tb uint32
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if img.Pix[i+3] == 0 {
				continue
			}
			total++
			tr += uint32(img.Pix[i])
			tg += uint32(img.Pix[i+1])
			tb += uint32(img.Pix[i+2])
		}
	}

	c := color.NRGBA{A: 255}
	if total > 0 {
		c.R = uint8(tr / total)
		c.G = uint8(tg / total)
		c.B = uint8(tb / total)
	}
	return c
}
