package postprocess

import "image"

// CleanTransparent replaces the colour of every pixel with alpha <= threshold
// by the alpha-weighted mean of its visible 8-neighbours. Filtering and
// mipmapping then stop bleeding black fringes out of transparent areas.
// Alpha values are left unchanged. img is modified in place.
func CleanTransparent(img *image.NRGBA, threshold uint8) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	stride := img.Stride

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			if src[i+3] > threshold {
				continue
			}

			var ss, sr, sg, sb uint32
			for sy := max(y-1, 0); sy <= y+1 && sy < h; sy++ {
				for sx := max(x-1, 0); sx <= x+1 && sx < w; sx++ {
					j := sy*stride + sx*4
					a := uint32(src[j+3])
					if a <= uint32(threshold) {
						continue
					}
					ss += a
					sr += a * uint32(src[j])
					sg += a * uint32(src[j+1])
					sb += a * uint32(src[j+2])
				}
			}
			if ss > 0 {
				img.Pix[i] = uint8(sr / ss)
				img.Pix[i+1] = uint8(sg / ss)
				img.Pix[i+2] = uint8(sb / ss)
			}
		}
	}
}
