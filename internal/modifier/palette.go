package modifier

import (
	"image"
	"image/color"

	"voxel-assets/internal/logging"
)

// Palette is the 256-entry colour table used by param2 colouring.
type Palette [256]color.NRGBA

// BuildPalette reads up to 256 colours from img in row-major order. Images
// with fewer pixels are stretched so each colour covers 256/area entries; any
// remaining entries are opaque white.
func BuildPalette(name string, img *image.NRGBA) *Palette {
	var p Palette
	for i := range p {
		p[i] = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	b := img.Bounds()
	area := b.Dx() * b.Dy()
	if area == 0 {
		logging.Logger().Warn("modifier: empty palette image", "name", name)
		return &p
	}
	if area > 256 {
		logging.Logger().Warn("modifier: palette has more than 256 pixels, using the first 256", "name", name, "pixels", area)
		area = 256
	} else if 256%area != 0 {
		logging.Logger().Warn("modifier: palette size does not divide 256", "name", name, "pixels", area)
	}

	step := 256 / area
	for i := 0; i < area; i++ {
		c := img.NRGBAAt(b.Min.X+i%b.Dx(), b.Min.Y+i/b.Dx())
		for j := 0; j < step; j++ {
			p[i*step+j] = c
		}
	}
	return &p
}
