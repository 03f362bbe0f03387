package modifier

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"voxel-assets/internal/logging"
	"voxel-assets/internal/postprocess"
	"voxel-assets/internal/raster"
)

// modFunc applies a modifier token to base. A nil image keeps the old base.
type modFunc func(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error)

// modifiers are matched by prefix, in order.
var modifiers []struct {
	prefix string
	fn     modFunc
}

func init() {
	modifiers = []struct {
		prefix string
		fn     modFunc
	}{
		{"[crack", modCrack},
		{"[combine", modCombine},
		{"[fill", modFill},
		{"[brighten", modBrighten},
		{"[noalpha", modNoAlpha},
		{"[makealpha:", modMakeAlpha},
		{"[transform", modTransform},
		{"[inventorycube", modInventoryCube},
		{"[lowpart:", modLowPart},
		{"[verticalframe:", modVerticalFrame},
		{"[mask:", modMask},
		{"[multiply:", modMultiply},
		{"[colorize:", modColorize},
		{"[applyfiltersformesh", modApplyFiltersForMesh},
		{"[resize:", modResize},
		{"[opacity:", modOpacity},
		{"[invert:", modInvert},
		{"[sheet:", modSheet},
	}
}

func (e *Engine) applyModifier(base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	for _, m := range modifiers {
		if strings.HasPrefix(tok, m.prefix) {
			return m.fn(e, base, tok, depth)
		}
	}
	logging.Logger().Warn("modifier: unknown modifier, ignored", "part", tok)
	return nil, nil
}

// args returns the unescaped ':'-separated fields after the modifier name.
func args(tok string) []string {
	i := strings.IndexByte(tok, ':')
	if i < 0 {
		return nil
	}
	return splitArgs(tok[i+1:], ':')
}

func needBase(base *image.NRGBA, tok string) error {
	if base == nil {
		return fmt.Errorf("%w: %q needs a base image", ErrInvalidExpression, tok)
	}
	return nil
}

func needArgs(a []string, n int, tok string) error {
	if len(a) < n {
		return fmt.Errorf("%w: %q needs %d arguments", ErrInvalidExpression, tok, n)
	}
	return nil
}

func atoi(s, what string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", ErrInvalidExpression, what, s)
	}
	return v, nil
}

func atoiRange(s, what string, lo, hi int) (int, error) {
	v, err := atoi(s, what)
	if err != nil {
		return 0, err
	}
	return min(max(v, lo), hi), nil
}

// parseSize parses "WxH".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: bad size %q", ErrInvalidExpression, s)
	}
	w, err := atoi(ws, "width")
	if err != nil {
		return 0, 0, err
	}
	h, err := atoi(hs, "height")
	if err != nil {
		return 0, 0, err
	}
	return w, h, checkDimensions(w, h)
}

// parsePoint parses "X,Y".
func parsePoint(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("%w: bad position %q", ErrInvalidExpression, s)
	}
	x, err := atoi(xs, "x")
	if err != nil {
		return image.Point{}, err
	}
	y, err := atoi(ys, "y")
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(x, y), nil
}

// [combine:WxH:x,y=file:x,y=file...
func modCombine(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	a := args(tok)
	if len(a) == 0 {
		return nil, fmt.Errorf("%w: %q needs a size", ErrInvalidExpression, tok)
	}
	w, h, err := parseSize(a[0])
	if base == nil {
		if err != nil {
			return nil, err
		}
		base = raster.New(w, h)
	} else if err != nil {
		logging.Logger().Warn("modifier: [combine size ignored, using base", "part", tok, "err", err)
	}

	var firstErr error
	for _, part := range a[1:] {
		pos, file, ok := strings.Cut(part, "=")
		if !ok {
			firstErr = cmpErr(firstErr, fmt.Errorf("%w: bad [combine entry %q", ErrInvalidExpression, part))
			continue
		}
		p, err := parsePoint(pos)
		if err != nil {
			firstErr = cmpErr(firstErr, err)
			continue
		}
		img, err := e.generate(file, depth+1)
		firstErr = cmpErr(firstErr, err)
		raster.Blit(img, base, image.Point{}, p, raster.Size(img))
	}
	return base, firstErr
}

func cmpErr(first, err error) error {
	if first != nil {
		return first
	}
	return err
}

// [fill:WxH:color or [fill:WxH:X,Y:color
func modFill(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	a := args(tok)
	if err := needArgs(a, 2, tok); err != nil {
		return nil, err
	}
	w, h, err := parseSize(a[0])
	if err != nil {
		return nil, err
	}
	var at image.Point
	colorArg := a[1]
	if len(a) >= 3 {
		if at, err = parsePoint(a[1]); err != nil {
			return nil, err
		}
		colorArg = a[2]
	}
	c, err := ParseColor(colorArg)
	if err != nil {
		return nil, err
	}

	if base == nil {
		base = raster.New(w, h)
		at = image.Point{}
	}
	r := image.Rect(at.X, at.Y, at.X+w, at.Y+h).Intersect(base.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			base.SetNRGBA(x, y, c)
		}
	}
	return base, nil
}

// [brighten
func modBrighten(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	forEachPixel(base, func(p []uint8) {
		for c := 0; c < 3; c++ {
			p[c] = uint8((255 + uint32(p[c])) / 2)
		}
	})
	return base, nil
}

// [noalpha
func modNoAlpha(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	forEachPixel(base, func(p []uint8) { p[3] = 255 })
	return base, nil
}

// [makealpha:R,G,B
func modMakeAlpha(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	rgb := strings.Split(a[0], ",")
	if len(rgb) != 3 {
		return nil, fmt.Errorf("%w: %q needs R,G,B", ErrInvalidExpression, tok)
	}
	var key [3]uint8
	for i, s := range rgb {
		v, err := atoiRange(s, "colour component", 0, 255)
		if err != nil {
			return nil, err
		}
		key[i] = uint8(v)
	}
	forEachPixel(base, func(p []uint8) {
		if p[0] == key[0] && p[1] == key[1] && p[2] == key[2] {
			p[3] = 0
		}
	})
	return base, nil
}

// [transformN
func modTransform(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	t, rest := ParseTransform(strings.TrimPrefix(tok, "[transform"))
	if rest != "" {
		logging.Logger().Warn("modifier: trailing characters in [transform", "part", tok, "rest", rest)
	}
	return Transform(base, t), nil
}

// [lowpart:P:file
func modLowPart(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	a := args(tok)
	if err := needArgs(a, 2, tok); err != nil {
		return nil, err
	}
	percent, err := atoiRange(a[0], "percentage", 0, 100)
	if err != nil {
		return nil, err
	}
	img, err := e.generate(a[1], depth+1)
	size := raster.Size(img)
	if base == nil {
		base = raster.New(size.X, size.Y)
	}
	top := size.Y * (100 - percent) / 100
	rows := size.Y*percent/100 + 1
	raster.Blit(img, base, image.Pt(0, top), image.Pt(0, top), image.Pt(size.X, rows))
	return base, err
}

// [verticalframe:N:I
func modVerticalFrame(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 2, tok); err != nil {
		return nil, err
	}
	count, err := atoi(a[0], "frame count")
	if err != nil {
		return nil, err
	}
	index, err := atoi(a[1], "frame index")
	if err != nil {
		return nil, err
	}
	if count <= 0 || index < 0 {
		return nil, fmt.Errorf("%w: %q frame out of range", ErrInvalidExpression, tok)
	}
	size := raster.Size(base)
	fh := size.Y / count
	if fh == 0 {
		return nil, fmt.Errorf("%w: %q more frames than rows", ErrInvalidExpression, tok)
	}
	return raster.Crop(base, image.Rect(0, index*fh, size.X, (index+1)*fh)), nil
}

// [mask:file
func modMask(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	mask, err := e.generate(a[0], depth+1)
	r := mask.Bounds().Intersect(base.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			di, mi := base.PixOffset(x, y), mask.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				base.Pix[di+c] &= mask.Pix[mi+c]
			}
		}
	}
	return base, err
}

// [multiply:color
func modMultiply(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	c, err := ParseColor(a[0])
	if err != nil {
		return nil, err
	}
	k := [3]uint32{uint32(c.R), uint32(c.G), uint32(c.B)}
	forEachPixel(base, func(p []uint8) {
		for i := 0; i < 3; i++ {
			p[i] = uint8(uint32(p[i]) * k[i] / 255)
		}
	})
	return base, nil
}

// [colorize:color[:ratio|alpha]
func modColorize(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	c, err := ParseColor(a[0])
	if err != nil {
		return nil, err
	}
	ratio := -1
	keepAlpha := false
	if len(a) > 1 && a[1] != "" {
		if a[1] == "alpha" {
			keepAlpha = true
		} else if ratio, err = atoiRange(a[1], "ratio", 0, 255); err != nil {
			return nil, err
		}
	}
	colorize(base, c, ratio, keepAlpha)
	return base, nil
}

func colorize(img *image.NRGBA, c color.NRGBA, ratio int, keepAlpha bool) {
	if (ratio == -1 && c.A == 255) || ratio == 255 {
		forEachPixel(img, func(p []uint8) {
			if p[3] == 0 {
				return
			}
			a := c.A
			if keepAlpha {
				a = uint8(uint32(p[3]) * uint32(c.A) / 255)
			}
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, a
		})
		return
	}

	t := float64(c.A) / 255
	if ratio >= 0 {
		t = float64(ratio) / 255
	}
	src := [4]float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
	forEachPixel(img, func(p []uint8) {
		if p[3] == 0 {
			return
		}
		for i := 0; i < 4; i++ {
			p[i] = uint8(src[i]*t + float64(p[i])*(1-t) + 0.5)
		}
	})
}

// [applyfiltersformesh
func modApplyFiltersForMesh(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	if e.opts.CleanTransparent {
		postprocess.CleanTransparent(base, 127)
	}
	if e.opts.BilinearFilter || e.opts.TrilinearFilter {
		base = postprocess.UpscaleToMin(base, e.opts.MinTextureSize)
	}
	return base, nil
}

// [resize:WxH
func modResize(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	w, h, err := parseSize(a[0])
	if err != nil {
		return nil, err
	}
	f := raster.Nearest
	if e.opts.BilinearFilter {
		f = raster.Bilinear
	}
	return raster.Scale(base, w, h, f), nil
}

// [opacity:A
func modOpacity(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	ratio, err := atoiRange(a[0], "opacity", 0, 255)
	if err != nil {
		return nil, err
	}
	r := uint32(ratio)
	forEachPixel(base, func(p []uint8) {
		p[3] = uint8((uint32(p[3])*r + 127) / 255)
	})
	return base, nil
}

// [invert:channels
func modInvert(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 1, tok); err != nil {
		return nil, err
	}
	var mask [4]uint8
	for i, ch := range "rgba" {
		if strings.ContainsRune(strings.ToLower(a[0]), ch) {
			mask[i] = 0xff
		}
	}
	forEachPixel(base, func(p []uint8) {
		for i := 0; i < 4; i++ {
			p[i] ^= mask[i]
		}
	})
	return base, nil
}

// [sheet:WxH:x,y
func modSheet(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	a := args(tok)
	if err := needArgs(a, 2, tok); err != nil {
		return nil, err
	}
	cols, rows, err := parseSize(a[0])
	if err != nil {
		return nil, err
	}
	cell, err := parsePoint(a[1])
	if err != nil {
		return nil, err
	}
	size := raster.Size(base)
	tw, th := size.X/cols, size.Y/rows
	if tw == 0 || th == 0 {
		return nil, fmt.Errorf("%w: %q cells smaller than a pixel", ErrInvalidExpression, tok)
	}
	return raster.Crop(base, image.Rect(cell.X*tw, cell.Y*th, (cell.X+1)*tw, (cell.Y+1)*th)), nil
}

func forEachPixel(img *image.NRGBA, f func(p []uint8)) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		f(img.Pix[i : i+4 : i+4])
	}
}
