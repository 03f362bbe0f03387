// Package modifier evaluates texture expressions such as
// "base.png^[crack:4:2^[colorize:#ff0:128^[transform3" into RGBA8 images.
//
// An expression is a '^'-separated list of tokens. A token is a source image
// name, a bracketed modifier ("[name:arg:arg"), or a parenthesised
// sub-expression that is evaluated on its own and composited onto the image
// built so far. A backslash escapes the next byte and '^' inside parentheses
// does not split.
package modifier

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"sync"

	"voxel-assets/internal/logging"
	"voxel-assets/internal/raster"
	"voxel-assets/internal/texture"
)

var (
	// ErrInvalidExpression reports a malformed expression or modifier.
	ErrInvalidExpression = errors.New("invalid texture expression")
	// ErrMissingSource reports a source image that is neither cached nor on disk.
	ErrMissingSource = errors.New("missing source image")
)

const (
	maxDepth     = 64
	maxDimension = 16384
	maxPixels    = 4096 * 4096
	maxParsed    = 4096

	// DefaultCrackImage is the vertical strip of crack stages used by [crack.
	DefaultCrackImage = "crack_anylength.png"
)

// Options carries the settings that change modifier output.
type Options struct {
	// BilinearFilter makes [resize interpolate and, together with
	// TrilinearFilter, enables the upscale step of [applyfiltersformesh.
	BilinearFilter   bool
	TrilinearFilter  bool
	MinTextureSize   int
	CleanTransparent bool
	// CrackImage overrides DefaultCrackImage.
	CrackImage string
}

// MeshFilters reports whether [applyfiltersformesh changes anything.
func (o Options) MeshFilters() bool {
	return o.CleanTransparent || ((o.BilinearFilter || o.TrilinearFilter) && o.MinTextureSize > 1)
}

// Engine evaluates expressions against a source image lookup. It is safe for
// concurrent use as long as the lookup is.
type Engine struct {
	sources texture.Lookup
	opts    Options

	mu       sync.Mutex
	parsed   map[string]*Expr
	reported map[string]bool
}

// NewEngine creates an engine reading source images through sources.
func NewEngine(sources texture.Lookup, opts Options) *Engine {
	if opts.CrackImage == "" {
		opts.CrackImage = DefaultCrackImage
	}
	return &Engine{
		sources:  sources,
		opts:     opts,
		parsed:   make(map[string]*Expr),
		reported: make(map[string]bool),
	}
}

// Options returns the engine settings.
func (e *Engine) Options() Options { return e.opts }

// Evaluate returns the image for expr. It never returns nil: problems are
// logged and replaced by the base built so far or a 1x1 placeholder.
func (e *Engine) Evaluate(expr string) *image.NRGBA {
	img, _ := e.Generate(expr)
	return img
}

// Generate is Evaluate that also reports the first problem met. The image is
// valid even when err is not nil.
func (e *Engine) Generate(expr string) (*image.NRGBA, error) {
	return e.generate(expr, 0)
}

func (e *Engine) generate(expr string, depth int) (*image.NRGBA, error) {
	if depth > maxDepth {
		err := fmt.Errorf("%w: recursion deeper than %d", ErrInvalidExpression, maxDepth)
		logging.Logger().Error("modifier: evaluate", "expr", expr, "err", err)
		return placeholder(expr), err
	}
	x, err := e.parse(expr)
	if err != nil {
		logging.Logger().Error("modifier: parse", "expr", expr, "err", err)
		return placeholder(expr), err
	}
	return e.eval(x, depth)
}

func (e *Engine) parse(expr string) (*Expr, error) {
	e.mu.Lock()
	x, ok := e.parsed[expr]
	e.mu.Unlock()
	if ok {
		return x, nil
	}

	x, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.parsed) >= maxParsed {
		e.parsed = make(map[string]*Expr)
	}
	e.parsed[expr] = x
	e.mu.Unlock()
	return x, nil
}

func (e *Engine) eval(x *Expr, depth int) (*image.NRGBA, error) {
	var base *image.NRGBA
	var firstErr error
	for _, s := range x.steps {
		next, err := e.apply(base, s, depth)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !errors.Is(err, ErrMissingSource) {
				logging.Logger().Error("modifier: failed to apply", "part", s.text, "expr", x.Source, "err", err)
			}
		}
		if next != nil {
			base = next
		}
	}
	if base == nil {
		logging.Logger().Warn("modifier: expression produced no image", "expr", x.Source)
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: empty expression %q", ErrInvalidExpression, x.Source)
		}
		return placeholder(x.Source), firstErr
	}
	return base, firstErr
}

// apply runs one step. It returns the new base, or nil with an error to
// keep the current base.
func (e *Engine) apply(base *image.NRGBA, s step, depth int) (*image.NRGBA, error) {
	switch s.kind {
	case stepGroup:
		img, err := e.eval(s.group, depth+1)
		if base == nil {
			return img, err
		}
		raster.Over(img, base)
		return base, err
	case stepName:
		return e.applyName(base, s.text)
	default:
		return e.applyModifier(base, s.text, depth)
	}
}

// applyName loads a source image as the base, or blends it onto the base.
// When sizes differ the smaller image is scaled up to the larger one first.
func (e *Engine) applyName(base *image.NRGBA, name string) (*image.NRGBA, error) {
	img, err := e.source(name)
	if base == nil {
		return raster.Clone(img), err
	}

	bs, is := raster.Size(base), raster.Size(img)
	switch {
	case bs == is:
	case is.X*is.Y < bs.X*bs.Y:
		img = raster.Scale(img, bs.X, bs.Y, raster.Nearest)
	default:
		base = raster.Scale(base, is.X, is.Y, raster.Nearest)
	}
	raster.Over(img, base)
	return base, err
}

// source returns a shared source image, or a placeholder when it is missing.
// The caller must not modify the result.
func (e *Engine) source(name string) (*image.NRGBA, error) {
	if img := e.sources.GetOrLoad(name); img != nil {
		return img, nil
	}
	e.reportMissing(name)
	return placeholder(name), fmt.Errorf("%w: %q", ErrMissingSource, name)
}

func (e *Engine) reportMissing(name string) {
	e.mu.Lock()
	seen := e.reported[name]
	e.reported[name] = true
	e.mu.Unlock()
	if !seen {
		logging.Logger().Error("modifier: could not load image, using a dummy", "name", name)
	}
}

// placeholder returns a 1x1 opaque image whose colour is derived from name,
// so a missing source still evaluates to the same bytes every time.
func placeholder(name string) *image.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	v := h.Sum32()
	img := raster.New(1, 1)
	img.SetNRGBA(0, 0, color.NRGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255})
	return img
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 || w > maxDimension || h > maxDimension || w*h > maxPixels {
		return fmt.Errorf("%w: bad image dimensions %dx%d", ErrInvalidExpression, w, h)
	}
	return nil
}
