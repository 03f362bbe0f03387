package modifier

import (
	"fmt"
	"image"
	"strings"

	"voxel-assets/internal/logging"
	"voxel-assets/internal/raster"
)

// [crack:N:P, [crack:T:N:P and the overlay form [cracko...
//
// The base is treated as N vertical animation frames. Stage P of the crack
// strip is scaled to a frame, tiled T x T, and composited onto every frame.
// A negative P leaves the base alone.
func modCrack(e *Engine, base *image.NRGBA, tok string, depth int) (*image.NRGBA, error) {
	if err := needBase(base, tok); err != nil {
		return nil, err
	}
	overlay := strings.HasPrefix(tok, "[cracko")
	a := args(tok)

	tiles := 1
	var frames, progression int
	var err error
	switch len(a) {
	case 2:
		if frames, err = atoi(a[0], "frame count"); err != nil {
			return nil, err
		}
		if progression, err = atoi(a[1], "crack progression"); err != nil {
			return nil, err
		}
	case 3:
		if tiles, err = atoi(a[0], "tile count"); err != nil {
			return nil, err
		}
		if frames, err = atoi(a[1], "frame count"); err != nil {
			return nil, err
		}
		if progression, err = atoi(a[2], "crack progression"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q needs N:P or T:N:P", ErrInvalidExpression, tok)
	}
	if progression < 0 {
		return base, nil
	}

	crack := e.sources.GetOrLoad(e.opts.CrackImage)
	if crack == nil {
		e.reportMissing(e.opts.CrackImage)
		return base, nil
	}
	drawCrack(crack, base, overlay, frames, progression, tiles)
	return base, nil
}

func drawCrack(crack, dst *image.NRGBA, overlay bool, frames, progression, tiles int) {
	size := raster.Size(dst)
	frames = min(max(frames, 1), size.Y)
	frame := image.Pt(size.X, size.Y/frames)

	stage := crackStage(crack, progression, frame, tiles)
	if stage == nil {
		return
	}
	blit := raster.Blit
	if overlay {
		blit = raster.BlitOverlay
	}
	for i := 0; i < frames; i++ {
		blit(stage, dst, image.Point{}, image.Pt(0, frame.Y*i), frame)
	}
}

// crackStage cuts square stage `level` out of the crack strip, scales it to
// size/tiles and repeats it tiles x tiles times.
func crackStage(crack *image.NRGBA, level int, size image.Point, tiles int) *image.NRGBA {
	tiles = max(tiles, 1)
	cs := raster.Size(crack)
	if cs.X == 0 {
		return nil
	}
	count := cs.Y / cs.X
	if count == 0 {
		logging.Logger().Warn("modifier: crack image shorter than wide", "size", cs)
		return nil
	}
	level = min(level, count-1)

	tile := image.Pt(size.X/tiles, size.Y/tiles)
	if tile.X == 0 || tile.Y == 0 {
		return nil
	}
	stage := raster.Crop(crack, image.Rect(0, level*cs.X, cs.X, (level+1)*cs.X))
	scaled := raster.Scale(stage, tile.X, tile.Y, raster.Nearest)

	out := raster.New(size.X, size.Y)
	for i := 0; i < tiles; i++ {
		for j := 0; j < tiles; j++ {
			raster.Paste(scaled, out, image.Pt(i*tile.X, j*tile.Y))
		}
	}
	return out
}
