// Package glbackend implements the gpu seam on OpenGL 4.1 core. A context must
// be current on the calling OS thread; call gl.Init once before New.
package glbackend

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"voxel-assets/internal/gpu"
)

// Version is prepended to every shader stage.
const Version = "#version 410 core\n"

// Backend is a gpu.Driver and gpu.ProgramFactory.
type Backend struct {
	// Filter selects GL_LINEAR sampling instead of GL_NEAREST.
	Filter bool
}

// New returns a backend for the current context.
func New(filter bool) *Backend {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	return &Backend{Filter: filter}
}

func (b *Backend) CreateTexture(name string, img *image.NRGBA, mipmaps bool) (gpu.TextureHandle, error) {
	r := img.Bounds()
	if r.Empty() {
		return 0, fmt.Errorf("glbackend: create texture %s: empty image", name)
	}
	pix := img.Pix
	if img.Stride != r.Dx()*4 || r.Min != (image.Point{}) {
		c := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
		for y := 0; y < r.Dy(); y++ {
			copy(c.Pix[y*c.Stride:(y+1)*c.Stride], img.Pix[img.PixOffset(r.Min.X, r.Min.Y+y):])
		}
		pix = c.Pix
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	mag := int32(gl.NEAREST)
	if b.Filter {
		mag = gl.LINEAR
	}
	minFilter := mag
	if mipmaps {
		minFilter = gl.NEAREST_MIPMAP_NEAREST
		if b.Filter {
			minFilter = gl.LINEAR_MIPMAP_LINEAR
		}
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, mag)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(r.Dx()), int32(r.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	if mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("glbackend: create texture %s: gl error 0x%x", name, e)
	}
	return gpu.TextureHandle(tex), nil
}

func (b *Backend) ReleaseTexture(h gpu.TextureHandle) {
	tex := uint32(h)
	gl.DeleteTextures(1, &tex)
}

func (b *Backend) CompileProgram(name string, src gpu.ProgramSource, base gpu.BaseMaterial) (gpu.ProgramHandle, error) {
	stages := []struct {
		kind uint32
		text string
	}{
		{gl.VERTEX_SHADER, src.Vertex},
		{gl.FRAGMENT_SHADER, src.Pixel},
		{gl.GEOMETRY_SHADER, src.Geometry},
	}

	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		if st.text == "" {
			if st.kind == gl.GEOMETRY_SHADER {
				continue
			}
			return 0, fmt.Errorf("%w: %s: missing stage", gpu.ErrCompile, name)
		}
		s, err := compileShader(Version+st.text+"\x00", st.kind)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", gpu.ErrCompile, name, err)
		}
		shaders = append(shaders, s)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%w: %s: link: %s", gpu.ErrCompile, name, strings.TrimRight(buf, "\x00"))
	}
	return gpu.ProgramHandle(program), nil
}

func (b *Backend) ReleaseProgram(h gpu.ProgramHandle) {
	gl.DeleteProgram(uint32(h))
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}
