package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// UpscaleToMin enlarges img by an integer factor so its shorter side reaches
// minSize. Low-resolution textures then filter as well as high-resolution
// ones. Images are never shrunk and a factor below 2 returns img itself.
func UpscaleToMin(img *image.NRGBA, minSize int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if minSize <= 1 || w == 0 || h == 0 {
		return img
	}

	scale := max(minSize/w, minSize/h)
	if scale < 2 {
		return img
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
