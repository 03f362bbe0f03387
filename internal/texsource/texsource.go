// Package texsource turns texture expressions into GPU textures with stable
// ids. Any goroutine may ask for a texture; only the owner goroutine (the one
// that called New) evaluates expressions and uploads the result. Requests from
// other goroutines wait until the owner calls ProcessQueue.
package texsource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"voxel-assets/internal/broker"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/modifier"
	"voxel-assets/internal/nametable"
	"voxel-assets/internal/postprocess"
	"voxel-assets/internal/raster"
	"voxel-assets/internal/texture"
)

// MeshSuffix is appended to a name by TextureForMesh.
const MeshSuffix = "^[applyfiltersformesh"

// Texture is a built texture. Image must not be modified.
type Texture struct {
	Name  string
	Image *image.NRGBA
	// OriginalSize is the size before mesh filtering upscaled the image.
	OriginalSize image.Point
	Handle       gpu.TextureHandle
	Mipmaps      bool
}

// Options configures a Source.
type Options struct {
	Modifier modifier.Options
	// Mipmaps asks the driver for a mipmap chain on every upload.
	Mipmaps bool
	// WaitTimeout bounds each wait of a consumer; 0 means
	// broker.DefaultWaitTimeout.
	WaitTimeout time.Duration
}

// Source owns every built texture.
type Source struct {
	guard  broker.Guard
	names  *nametable.Table
	cache  *texture.Cache
	engine *modifier.Engine
	driver gpu.Driver
	opts   Options

	// mu guards textures and the insertion of names; textures[id] belongs
	// to names.Name(id).
	mu       sync.RWMutex
	textures []Texture

	queue *broker.RequestQueue[string, nametable.ID]

	palMu    sync.Mutex
	palettes map[string]*modifier.Palette
}

// New creates a texture source. The calling goroutine becomes the owner.
func New(cache *texture.Cache, driver gpu.Driver, opts Options) *Source {
	s := &Source{
		guard:    broker.NewGuard(),
		names:    nametable.New(),
		cache:    cache,
		engine:   modifier.NewEngine(cache, opts.Modifier),
		driver:   driver,
		opts:     opts,
		textures: []Texture{{}},
		queue:    broker.NewRequestQueue[string, nametable.ID](),
		palettes: make(map[string]*modifier.Palette),
	}
	logging.Logger().Debug("texsource: created", "mipmaps", opts.Mipmaps)
	return s
}

// Engine returns the modifier engine used for building.
func (s *Source) Engine() *modifier.Engine { return s.engine }

// lookup returns the id of an already built texture.
func (s *Source) lookup(name string) (nametable.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.names.Find(name)
	if id == 0 || int(id) >= len(s.textures) {
		return 0, false
	}
	return id, true
}

// TextureID returns the id for name, building it if needed. The empty name
// is id 0. On the owner goroutine the texture is built before returning;
// elsewhere the call waits for ProcessQueue and returns 0 with
// broker.ErrTimeout if the request is dropped.
func (s *Source) TextureID(ctx context.Context, name string) (nametable.ID, error) {
	if name == "" {
		return 0, nil
	}
	if id, ok := s.lookup(name); ok {
		return id, nil
	}
	if s.guard.IsOwner() {
		return s.build(name), nil
	}
	id, err := s.queue.Await(ctx, name, s.opts.WaitTimeout)
	if err != nil {
		return 0, fmt.Errorf("texsource: texture %s: %w", name, err)
	}
	return id, nil
}

// build evaluates and uploads name. Owner only.
func (s *Source) build(name string) nametable.ID {
	if id, ok := s.lookup(name); ok {
		return id
	}
	tex := s.generate(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.names.GetOrInsert(name)
	if int(id) != len(s.textures) {
		// names and textures only grow together, under mu.
		panic(fmt.Sprintf("texsource: id %d out of step with %d textures", id, len(s.textures)))
	}
	s.textures = append(s.textures, tex)
	logging.Logger().Debug("texsource: built", "name", name, "id", id, "size", tex.OriginalSize)
	return id
}

func (s *Source) generate(name string) Texture {
	tex, err := s.generateChecked(name)
	if err != nil {
		logging.Logger().Debug("texsource: built with problems", "name", name, "err", err)
	}
	return tex
}

// generateChecked is generate that also reports evaluation and upload
// problems. The texture is usable even when err is not nil.
func (s *Source) generateChecked(name string) (Texture, error) {
	img, err := s.engine.Generate(name)
	tex := Texture{Name: name, Image: img, OriginalSize: originalSize(s.engine, name, img), Mipmaps: s.opts.Mipmaps}
	if s.driver != nil {
		h, uerr := s.driver.CreateTexture(name, img, s.opts.Mipmaps)
		if uerr != nil {
			logging.Logger().Error("texsource: upload failed", "name", name, "err", uerr)
			err = cmpErr(err, uerr)
		}
		tex.Handle = h
	}
	return tex, err
}

// originalSize is the image size before the trailing mesh filter.
func originalSize(e *modifier.Engine, name string, img *image.NRGBA) image.Point {
	if base, ok := strings.CutSuffix(name, MeshSuffix); ok && base != "" {
		return raster.Size(e.Evaluate(base))
	}
	return raster.Size(img)
}

func cmpErr(first, err error) error {
	if first != nil {
		return first
	}
	return err
}

// Texture returns the texture with the given id.
func (s *Source) Texture(id nametable.ID) (Texture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) >= len(s.textures) {
		return Texture{}, false
	}
	return s.textures[id], true
}

// TextureByName resolves name to an id, building it if needed, and returns
// the texture.
func (s *Source) TextureByName(ctx context.Context, name string) (nametable.ID, Texture, error) {
	id, err := s.TextureID(ctx, name)
	if err != nil || id == 0 {
		return id, Texture{}, err
	}
	tex, _ := s.Texture(id)
	return id, tex, nil
}

// OriginalSize returns the unfiltered size of the texture for name.
func (s *Source) OriginalSize(ctx context.Context, name string) (image.Point, error) {
	_, tex, err := s.TextureByName(ctx, name)
	return tex.OriginalSize, err
}

// TextureForMesh returns the id of name with the mesh filters applied. When
// no mesh filter is configured it is the id of name itself.
func (s *Source) TextureForMesh(ctx context.Context, name string) (nametable.ID, error) {
	if name == "" || !s.opts.Modifier.MeshFilters() {
		return s.TextureID(ctx, name)
	}
	return s.TextureID(ctx, name+MeshSuffix)
}

// TextureName returns the expression an id was built from.
func (s *Source) TextureName(id nametable.ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names.Name(id)
}

// Len returns the number of texture slots including the empty slot 0.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.textures)
}

// Palette returns the 256-colour palette built from the texture for name,
// or nil for the empty name. Palettes are cached per name. The image is
// obtained through TextureID, so any goroutine may call Palette.
func (s *Source) Palette(ctx context.Context, name string) (*modifier.Palette, error) {
	if name == "" {
		return nil, nil
	}
	s.palMu.Lock()
	p, ok := s.palettes[name]
	s.palMu.Unlock()
	if ok {
		return p, nil
	}

	_, tex, err := s.TextureByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("texsource: palette %s: %w", name, err)
	}
	if tex.Image == nil {
		return nil, fmt.Errorf("texsource: palette %s: no image", name)
	}
	p = modifier.BuildPalette(name, tex.Image)

	s.palMu.Lock()
	defer s.palMu.Unlock()
	if cached, ok := s.palettes[name]; ok {
		return cached, nil
	}
	s.palettes[name] = p
	return p, nil
}

// IsKnownSource reports whether a source image called name exists.
func (s *Source) IsKnownSource(name string) bool {
	return s.cache.Probe(name)
}

// AverageColor returns the opaque average colour of the texture for name.
func (s *Source) AverageColor(ctx context.Context, name string) (color.NRGBA, error) {
	_, tex, err := s.TextureByName(ctx, name)
	if err != nil {
		return color.NRGBA{}, err
	}
	if tex.Image == nil {
		return color.NRGBA{}, nil
	}
	return postprocess.AverageColor(tex.Image), nil
}

// ProcessQueue builds every queued request and hands the ids back to the
// waiting goroutines. It returns the number of requests served.
func (s *Source) ProcessQueue() (int, error) {
	if err := s.guard.Check("texsource.ProcessQueue"); err != nil {
		return 0, err
	}
	n := 0
	for {
		r, ok := s.queue.Pop()
		if !ok {
			return n, nil
		}
		s.queue.Resolve(r, s.build(r.Key))
		n++
	}
}

// InsertSource adds a source image, typically received from a server. A
// local file of the same name outside the base pack takes precedence.
func (s *Source) InsertSource(name string, img *image.NRGBA) error {
	if err := s.guard.Check("texsource.InsertSource"); err != nil {
		return err
	}
	s.cache.Insert(name, img, true)
	s.cache.MarkKnown(name)
	s.palMu.Lock()
	delete(s.palettes, name)
	s.palMu.Unlock()
	return nil
}

// RebuildAll re-evaluates every texture from its name, for example after the
// texture packs changed. Ids stay valid. A texture that fails to rebuild
// keeps its previous image and handle.
func (s *Source) RebuildAll() error {
	if err := s.guard.Check("texsource.RebuildAll"); err != nil {
		return err
	}
	s.cache.Clear()
	s.palMu.Lock()
	clear(s.palettes)
	s.palMu.Unlock()

	s.mu.RLock()
	names := make([]string, len(s.textures))
	for i := range s.textures {
		names[i] = s.textures[i].Name
	}
	s.mu.RUnlock()

	fresh := make([]Texture, len(names))
	ok := make([]bool, len(names))
	for id := 1; id < len(names); id++ {
		name := names[id]
		if got := s.names.Name(nametable.ID(id)); got != name {
			logging.Logger().Warn("texsource: rebuild name mismatch, keeping texture", "id", id, "name", name, "table", got)
			continue
		}
		tex, err := s.generateChecked(name)
		if err != nil {
			logging.Logger().Warn("texsource: rebuild failed, keeping old texture", "name", name, "err", err)
			if tex.Handle != 0 {
				s.driver.ReleaseTexture(tex.Handle)
			}
			continue
		}
		fresh[id], ok[id] = tex, true
	}

	var old []gpu.TextureHandle
	rebuilt := 0
	s.mu.Lock()
	for id := 1; id < len(fresh); id++ {
		if !ok[id] {
			continue
		}
		old = append(old, s.textures[id].Handle)
		s.textures[id] = fresh[id]
		rebuilt++
	}
	s.mu.Unlock()

	if s.driver != nil {
		for _, h := range old {
			if h != 0 {
				s.driver.ReleaseTexture(h)
			}
		}
	}
	logging.Logger().Info("texsource: rebuilt textures", "rebuilt", rebuilt, "total", len(names)-1)
	return nil
}

// Close drops queued requests, so waiting goroutines return with
// broker.ErrTimeout. Called on the owner it also releases every GPU texture.
func (s *Source) Close() {
	s.queue.Close()
	if s.driver == nil || !s.guard.IsOwner() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.textures {
		if h := s.textures[i].Handle; h != 0 {
			s.driver.ReleaseTexture(h)
			s.textures[i].Handle = 0
		}
	}
}
