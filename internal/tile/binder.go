package tile

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxel-assets/internal/gpu"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/modifier"
	"voxel-assets/internal/nametable"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
)

// Textures is the part of texsource.Source the binder uses.
type Textures interface {
	TextureID(ctx context.Context, name string) (nametable.ID, error)
	TextureForMesh(ctx context.Context, name string) (nametable.ID, error)
	Texture(id nametable.ID) (texsource.Texture, bool)
	TextureName(id nametable.ID) string
	Palette(ctx context.Context, name string) (*modifier.Palette, error)
}

// Shaders is the part of shader.Source the binder uses.
type Shaders interface {
	ShaderID(ctx context.Context, name string, material shader.Material, draw shader.Draw) (shader.ID, error)
	Info(id shader.ID) (shader.Info, bool)
}

// Frame is one animation frame of a layer.
type Frame struct {
	TextureID nametable.ID
	Duration  time.Duration
}

// Layer is a bound tile, ready for the renderer.
type Layer struct {
	Name         string
	TextureID    nametable.ID
	OriginalSize image.Point

	ShaderID     shader.ID
	Material     shader.Material
	BaseMaterial gpu.BaseMaterial

	// Frames is empty for a still tile.
	Frames      []Frame
	FrameLength time.Duration

	BackfaceCulling    bool
	TileableHorizontal bool
	TileableVertical   bool
	HasColor           bool
	Color              color.NRGBA
	Palette            *modifier.Palette
	Scale              uint8
	AlignStyle         AlignStyle
}

type crackKey struct {
	base        nametable.ID
	progression int
	tiles       int
	frames      int
	overlay     bool
}

// Binder resolves tile specs against a texture and a shader source.
type Binder struct {
	textures Textures
	shaders  Shaders
	// ShaderName is the shader every layer is bound with.
	ShaderName string

	mu     sync.Mutex
	cracks map[crackKey]nametable.ID
}

// DefaultShaderName is the shader used for node tiles.
const DefaultShaderName = "nodes_shader"

// NewBinder creates a binder.
func NewBinder(textures Textures, shaders Shaders) *Binder {
	return &Binder{
		textures:   textures,
		shaders:    shaders,
		ShaderName: DefaultShaderName,
		cracks:     make(map[crackKey]nametable.ID),
	}
}

// Bind resolves spec for the given material and draw type.
func (b *Binder) Bind(ctx context.Context, spec Spec, material shader.Material, draw shader.Draw) (*Layer, error) {
	l := &Layer{
		Name:               spec.Name,
		Material:           material,
		BaseMaterial:       material.BaseMaterial(),
		BackfaceCulling:    spec.BackfaceCulling,
		TileableHorizontal: spec.TileableHorizontal,
		TileableVertical:   spec.TileableVertical,
		HasColor:           spec.HasColor,
		Color:              spec.Color,
		Scale:              spec.Scale,
		AlignStyle:         spec.AlignStyle,
	}
	if l.HasColor {
		l.Color.A = 255
	}

	var err error
	if l.Palette, err = b.textures.Palette(ctx, spec.Palette); err != nil {
		return nil, fmt.Errorf("tile: bind %s: %w", spec.Name, err)
	}
	if l.TextureID, err = b.textures.TextureForMesh(ctx, spec.Name); err != nil {
		return nil, fmt.Errorf("tile: bind %s: %w", spec.Name, err)
	}
	if tex, ok := b.textures.Texture(l.TextureID); ok {
		l.OriginalSize = tex.OriginalSize
	}

	if b.shaders != nil {
		if l.ShaderID, err = b.shaders.ShaderID(ctx, b.ShaderName, material, draw); err != nil {
			return nil, fmt.Errorf("tile: bind %s: %w", spec.Name, err)
		}
		if info, ok := b.shaders.Info(l.ShaderID); ok {
			l.BaseMaterial = info.BaseMaterial
		}
	}

	if err := b.bindAnimation(ctx, spec, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Binder) bindAnimation(ctx context.Context, spec Spec, l *Layer) error {
	a := spec.Animation
	var count int
	var frameLength time.Duration
	var modifierFor func(i int) string

	switch a.Type {
	case AnimationVerticalFrames:
		size := l.OriginalSize
		if a.AspectW == 0 || a.AspectH == 0 || size.X == 0 {
			return nil
		}
		frameHeight := size.X / int(a.AspectW) * int(a.AspectH)
		if frameHeight <= 0 {
			return nil
		}
		count = size.Y / frameHeight
		if count > 0 {
			frameLength = seconds(a.Length) / time.Duration(count)
		}
		modifierFor = func(i int) string { return fmt.Sprintf("^[verticalframe:%d:%d", count, i) }
	case AnimationSheet:
		count = int(a.FramesW) * int(a.FramesH)
		frameLength = seconds(a.FrameLength)
		modifierFor = func(i int) string {
			return fmt.Sprintf("^[sheet:%dx%d:%d,%d", a.FramesW, a.FramesH, i%int(a.FramesW), i/int(a.FramesW))
		}
	default:
		return nil
	}
	if count <= 1 || frameLength <= 0 {
		return nil
	}

	l.FrameLength = frameLength
	l.Frames = make([]Frame, count)
	for i := range l.Frames {
		id, err := b.textures.TextureForMesh(ctx, spec.Name+modifierFor(i))
		if err != nil {
			return fmt.Errorf("tile: bind %s frame %d: %w", spec.Name, i, err)
		}
		l.Frames[i] = Frame{TextureID: id, Duration: frameLength}
	}
	logging.Logger().Debug("tile: animated", "name", spec.Name, "frames", count, "frame_length", frameLength)
	return nil
}

func seconds(s float32) time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Frame returns the index of the animation frame shown at time now, or 0 for
// a still layer.
func (b *Binder) Frame(l *Layer, now time.Duration) int {
	if len(l.Frames) == 0 || l.FrameLength <= 0 {
		return 0
	}
	return int((now / l.FrameLength) % time.Duration(len(l.Frames)))
}

// FrameTexture returns the texture id shown at time now.
func (b *Binder) FrameTexture(l *Layer, now time.Duration) nametable.ID {
	if len(l.Frames) == 0 {
		return l.TextureID
	}
	return l.Frames[b.Frame(l, now)].TextureID
}

// Color returns the vertex colour for a node with the given param2. A
// palette supplies the base colour, white otherwise; a fixed tint multiplies
// it.
func (b *Binder) Color(l *Layer, param2 uint8) color.NRGBA {
	c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if l.Palette != nil {
		c = l.Palette[param2]
	}
	if l.HasColor {
		c.R = uint8(uint16(c.R) * uint16(l.Color.R) / 255)
		c.G = uint8(uint16(c.G) * uint16(l.Color.G) / 255)
		c.B = uint8(uint16(c.B) * uint16(l.Color.B) / 255)
	}
	return c
}

// CrackTexture returns the texture of base with the crack overlay at the
// given progression. Results are memoized per base, progression, tile
// count and overlay mode.
func (b *Binder) CrackTexture(ctx context.Context, base nametable.ID, progression, tiles int, overlay bool, frameCount int) (nametable.ID, error) {
	if base == 0 {
		return 0, nil
	}
	key := crackKey{base: base, progression: progression, tiles: tiles, frames: frameCount, overlay: overlay}
	b.mu.Lock()
	id, ok := b.cracks[key]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	mod := "^[crack"
	if overlay {
		mod = "^[cracko"
	}
	name := fmt.Sprintf("%s%s:%d:%d:%d", b.textures.TextureName(base), mod, max(tiles, 1), max(frameCount, 1), progression)
	id, err := b.textures.TextureID(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("tile: crack texture: %w", err)
	}
	b.mu.Lock()
	b.cracks[key] = id
	b.mu.Unlock()
	return id, nil
}

// UVTransform returns the texture coordinate transform for a face of the
// node at pos, where pos is the node position projected onto the face
// plane. World-aligned tiles with a scale span Scale nodes per texture;
// everything else maps one texture per node.
func (b *Binder) UVTransform(spec Spec, pos image.Point) mgl32.Mat3 {
	if spec.Scale <= 1 || (spec.AlignStyle != AlignWorld && spec.AlignStyle != AlignUserDefined) {
		return mgl32.Ident3()
	}
	s := int(spec.Scale)
	ox := float32(mod(pos.X, s)) / float32(s)
	oy := float32(mod(pos.Y, s)) / float32(s)
	inv := 1 / float32(s)
	return mgl32.Translate2D(ox, oy).Mul3(mgl32.Scale2D(inv, inv))
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
