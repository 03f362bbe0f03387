// Package gpu is the seam between the asset pipeline and the renderer. Only
// the owner goroutine calls into a Driver or ProgramFactory.
package gpu

import (
	"errors"
	"image"
)

// TextureHandle identifies an uploaded texture. 0 is no texture.
type TextureHandle uint32

// ProgramHandle identifies a linked shader program. 0 is no program.
type ProgramHandle uint32

// BaseMaterial is the fixed-function blend mode a shader program renders with.
type BaseMaterial uint8

const (
	Solid BaseMaterial = iota
	AlphaChannel
	AlphaRef
)

func (m BaseMaterial) String() string {
	switch m {
	case Solid:
		return "solid"
	case AlphaChannel:
		return "alpha_channel"
	case AlphaRef:
		return "alpha_ref"
	}
	return "unknown"
}

// ErrCompile wraps shader compile and link failures.
var ErrCompile = errors.New("gpu: shader compile failed")

// Driver uploads textures.
type Driver interface {
	// CreateTexture uploads img. With mipmaps the full chain is generated.
	CreateTexture(name string, img *image.NRGBA, mipmaps bool) (TextureHandle, error)
	ReleaseTexture(h TextureHandle)
}

// ProgramSource is the text of one shader program. Geometry is optional.
type ProgramSource struct {
	Vertex   string
	Pixel    string
	Geometry string
}

// ProgramFactory compiles shader programs.
type ProgramFactory interface {
	CompileProgram(name string, src ProgramSource, base BaseMaterial) (ProgramHandle, error)
	ReleaseProgram(h ProgramHandle)
}
