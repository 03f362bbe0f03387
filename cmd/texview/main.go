package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"voxel-assets/internal/config"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/gpu/glbackend"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
	"voxel-assets/internal/tile"
)

const (
	windowWidth  = 800
	windowHeight = 800
	shaderName   = "texview"
)

const vertexSource = `
in vec2 aPos;
uniform vec2 uScale;
uniform mat3 uUV;
out vec2 vUV;
void main() {
	vec2 uv = vec2(aPos.x * 0.5 + 0.5, 0.5 - aPos.y * 0.5);
	vUV = (uUV * vec3(uv, 1.0)).xy;
	gl_Position = vec4(aPos * uScale, 0.0, 1.0);
}
`

const pixelSource = `
in vec2 vUV;
uniform sampler2D uTex;
uniform vec4 uColor;
out vec4 fragColor;
void main() {
	vec4 c = texture(uTex, vUV) * uColor;
#if MATERIAL_TYPE == TILE_MATERIAL_BASIC
	if (c.a < 0.5)
		discard;
#endif
	fragColor = c;
}
`

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func initWindow() (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(windowWidth, windowHeight, "texview", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

// quad is a unit square of two triangles in clip space.
func newQuad() uint32 {
	verts := []float32{-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1}
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	return vao
}

type viewer struct {
	ctx      context.Context
	textures *texsource.Source
	shaders  *shader.Source
	binder   *tile.Binder
	specs    []tile.Spec
	current  int
	layer    *tile.Layer
	material shader.Material
	param2   uint8
	start    time.Time
}

func (v *viewer) bind() {
	spec := v.specs[v.current]
	layer, err := v.binder.Bind(v.ctx, spec, v.material, shader.DrawNormal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERR %v\n", err)
		return
	}
	v.layer = layer
	v.start = time.Now()
	fmt.Printf("[%d/%d] %s  %dx%d, %d frame(s), shader %d\n", v.current+1, len(v.specs),
		spec.Name, layer.OriginalSize.X, layer.OriginalSize.Y, max(len(layer.Frames), 1), layer.ShaderID)
}

func (v *viewer) draw(vao uint32, fbW, fbH int) {
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ClearColor(0.15, 0.15, 0.18, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	if v.layer == nil || v.layer.TextureID == 0 {
		return
	}
	info, ok := v.shaders.Info(v.layer.ShaderID)
	if !ok || info.Program == 0 {
		return
	}
	tex, ok := v.textures.Texture(v.binder.FrameTexture(v.layer, time.Since(v.start)))
	if !ok {
		return
	}

	prog := uint32(info.Program)
	gl.UseProgram(prog)

	// Keep the original aspect ratio inside the window.
	size := tex.OriginalSize
	sx, sy := float32(1), float32(1)
	if size.X > 0 && size.Y > 0 {
		ta := float32(size.X) / float32(size.Y)
		wa := float32(fbW) / float32(fbH)
		if ta > wa {
			sy = wa / ta
		} else {
			sx = ta / wa
		}
	}
	gl.Uniform2f(gl.GetUniformLocation(prog, gl.Str("uScale\x00")), sx*0.9, sy*0.9)

	uv := v.binder.UVTransform(v.specs[v.current], image.Point{})
	gl.UniformMatrix3fv(gl.GetUniformLocation(prog, gl.Str("uUV\x00")), 1, false, &uv[0])

	c := v.binder.Color(v.layer, v.param2)
	gl.Uniform4f(gl.GetUniformLocation(prog, gl.Str("uColor\x00")),
		float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex.Handle))
	gl.Uniform1i(gl.GetUniformLocation(prog, gl.Str("uTex\x00")), 0)

	if v.layer.BaseMaterial == gpu.AlphaChannel {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}

	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

func main() {
	configFile := flag.String("config", "", "Path to a JSON or YAML settings file")
	baseDir := flag.String("base", "", "Base directory holding textures/base/pack")
	texturePath := flag.String("textures", ".", "Texture search path list")
	animate := flag.Bool("animate", false, "Treat each texture as square vertical animation frames")
	length := flag.Float64("length", 1, "Animation length in seconds")
	materialName := flag.String("material", "alpha", "Tile material (TILE_MATERIAL_* name)")
	paletteName := flag.String("palette", "", "Palette image for hardware colouring")
	param2 := flag.Int("param2", 0, "Palette index used for colouring")
	scale := flag.Int("scale", 0, "World-aligned texture scale")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logging.SetLogger(logging.NewTextLogger(os.Stderr, *verbose))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: texview [flags] expr...")
		os.Exit(2)
	}
	material, err := shader.ParseMaterial(*materialName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{BaseDir: *baseDir, TexturePath: *texturePath})
	cfg.EnableShaders = true

	window, err := initWindow()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer glfw.Terminate()

	if err := gl.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: gl init: %v\n", err)
		os.Exit(1)
	}
	logging.Logger().Info("texview: renderer", "gl", gl.GoStr(gl.GetString(gl.VERSION)))

	backend := glbackend.New(cfg.BilinearFilter || cfg.TrilinearFilter)
	textures := texsource.New(cfg.NewTextureCache(), backend, cfg.TextureOptions())
	defer textures.Close()
	shaders := shader.New(backend, cfg.ShaderOptions())
	defer shaders.Close()
	shaders.InsertSource(shaderName, shader.VertexFile, vertexSource)
	shaders.InsertSource(shaderName, shader.PixelFile, pixelSource)

	binder := tile.NewBinder(textures, shaders)
	binder.ShaderName = shaderName

	v := &viewer{
		ctx:      context.Background(),
		textures: textures,
		shaders:  shaders,
		binder:   binder,
		material: material,
		param2:   uint8(*param2),
	}
	for _, expr := range flag.Args() {
		spec := tile.Spec{Name: expr, Palette: *paletteName}
		if *animate {
			spec.Animation = tile.Animation{
				Type:    tile.AnimationVerticalFrames,
				AspectW: 1,
				AspectH: 1,
				Length:  float32(*length),
			}
		}
		if *scale > 1 {
			spec.Scale = uint8(*scale)
			spec.AlignStyle = tile.AlignWorld
		}
		if *paletteName == "" {
			spec.HasColor = true
			spec.Color = color.NRGBA{255, 255, 255, 255}
		}
		v.specs = append(v.specs, spec)
	}
	v.bind()

	vao := newQuad()
	var prevLeft, prevRight, prevReload bool
	for !window.ShouldClose() {
		glfw.PollEvents()
		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
			continue
		}

		left := window.GetKey(glfw.KeyLeft) == glfw.Press
		right := window.GetKey(glfw.KeyRight) == glfw.Press
		reload := window.GetKey(glfw.KeyR) == glfw.Press
		switch {
		case left && !prevLeft:
			v.current = (v.current + len(v.specs) - 1) % len(v.specs)
			v.bind()
		case right && !prevRight:
			v.current = (v.current + 1) % len(v.specs)
			v.bind()
		case reload && !prevReload:
			if err := textures.RebuildAll(); err != nil {
				fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			}
			v.bind()
		}
		prevLeft, prevRight, prevReload = left, right, reload

		// Serve requests from any other goroutine.
		textures.ProcessQueue()
		shaders.ProcessQueue()

		fbW, fbH := window.GetFramebufferSize()
		if fbW <= 0 || fbH <= 0 {
			continue
		}
		v.draw(vao, fbW, fbH)
		window.SwapBuffers()
	}
}
