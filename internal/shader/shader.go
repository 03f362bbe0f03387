// Package shader builds shader programs for (name, material, draw)
// permutations. Stage sources come from files or from InsertSource, get a
// generated #define header and are compiled through a gpu.ProgramFactory on
// the owner goroutine. Ids are stable for the life of the Source; id 0 is
// the null shader, an opaque solid material without a program.
package shader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"voxel-assets/internal/broker"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/logging"
)

// ID identifies a shader record.
type ID uint32

// Key selects a shader permutation.
type Key struct {
	Name     string
	Material Material
	Draw     Draw
}

// Info is a built shader record.
type Info struct {
	Key
	Vertex       string
	Pixel        string
	Geometry     string
	Program      gpu.ProgramHandle
	BaseMaterial gpu.BaseMaterial
}

// Options carries the settings that shape generated headers.
type Options struct {
	EnableShaders bool
	// ShaderPath is searched before BasePath/client/shaders.
	ShaderPath string
	BasePath   string

	FogStart        float32
	WavingWater     bool
	WaterWaveHeight float32
	WaterWaveLength float32
	WaterWaveSpeed  float32
	WavingLeaves    bool
	WavingPlants    bool
	ToneMapping     bool

	// WaitTimeout bounds each wait of a consumer; 0 means
	// broker.DefaultWaitTimeout.
	WaitTimeout time.Duration
}

// Source owns every shader record.
type Source struct {
	guard   broker.Guard
	opts    Options
	factory gpu.ProgramFactory
	sources *sourceCache

	mu    sync.RWMutex
	infos []Info
	ids   map[Key]ID

	queue *broker.RequestQueue[Key, ID]
}

// New creates a shader source. The calling goroutine becomes the owner.
func New(factory gpu.ProgramFactory, opts Options) *Source {
	builtin := ""
	if opts.BasePath != "" {
		builtin = filepath.Join(opts.BasePath, "client", "shaders")
	}
	null := Info{Key: Key{Material: MaterialOpaque}, BaseMaterial: gpu.Solid}
	return &Source{
		guard:   broker.NewGuard(),
		opts:    opts,
		factory: factory,
		sources: newSourceCache(opts.ShaderPath, builtin),
		infos:   []Info{null},
		ids:     make(map[Key]ID),
		queue:   broker.NewRequestQueue[Key, ID](),
	}
}

// ShaderID returns the id for the permutation, building it on the owner
// goroutine or waiting for ProcessQueue elsewhere. The empty name is id 0.
func (s *Source) ShaderID(ctx context.Context, name string, material Material, draw Draw) (ID, error) {
	if name == "" {
		return 0, nil
	}
	key := Key{Name: name, Material: material, Draw: draw}
	if id, ok := s.lookup(key); ok {
		return id, nil
	}
	if s.guard.IsOwner() {
		return s.build(key), nil
	}
	id, err := s.queue.Await(ctx, key, s.opts.WaitTimeout)
	if err != nil {
		return 0, fmt.Errorf("shader: %s/%s/%s: %w", name, material, draw, err)
	}
	return id, nil
}

func (s *Source) lookup(key Key) (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[key]
	return id, ok
}

func (s *Source) build(key Key) ID {
	if id, ok := s.lookup(key); ok {
		return id
	}
	info := s.generate(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := ID(len(s.infos))
	s.infos = append(s.infos, info)
	s.ids[key] = id
	logging.Logger().Debug("shader: built", "name", key.Name, "material", key.Material, "draw", key.Draw, "id", id, "program", info.Program)
	return id
}

// generate reads, prefixes and compiles the stages of key.
func (s *Source) generate(key Key) Info {
	info := Info{Key: key, BaseMaterial: key.Material.BaseMaterial()}
	if !s.opts.EnableShaders {
		return info
	}

	vertex := s.sources.getOrLoad(key.Name, VertexFile)
	pixel := s.sources.getOrLoad(key.Name, PixelFile)
	geometry := s.sources.getOrLoad(key.Name, GeometryFile)
	if vertex == "" || pixel == "" {
		logging.Logger().Error("shader: missing vertex or pixel source", "name", key.Name)
		return info
	}

	header := Header(s.opts, key.Material, key.Draw)
	info.Vertex = header + vertex
	info.Pixel = header + pixel
	if geometry != "" {
		info.Geometry = header + geometry
	}
	if s.factory == nil {
		return info
	}

	prog, err := s.factory.CompileProgram(key.Name, gpu.ProgramSource{
		Vertex:   info.Vertex,
		Pixel:    info.Pixel,
		Geometry: info.Geometry,
	}, info.BaseMaterial)
	if err != nil {
		logging.Logger().Error("shader: compile failed", "name", key.Name, "err", err)
		logging.Logger().Debug("shader: vertex source", "name", key.Name, "src", numbered(info.Vertex))
		logging.Logger().Debug("shader: pixel source", "name", key.Name, "src", numbered(info.Pixel))
		if info.Geometry != "" {
			logging.Logger().Debug("shader: geometry source", "name", key.Name, "src", numbered(info.Geometry))
		}
		return info
	}
	info.Program = prog
	return info
}

// Info returns the record for id. Id 0 is the null shader.
func (s *Source) Info(id ID) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.infos) {
		return Info{}, false
	}
	return s.infos[id], true
}

// Len returns the number of records including the null shader.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.infos)
}

// ProcessQueue builds every queued permutation and returns the number served.
func (s *Source) ProcessQueue() (int, error) {
	if err := s.guard.Check("shader.ProcessQueue"); err != nil {
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

// InsertSource provides the text of one stage file of shader name. A file
// on disk with the same name wins over text.
func (s *Source) InsertSource(name, filename, text string) error {
	if err := s.guard.Check("shader.InsertSource"); err != nil {
		return err
	}
	s.sources.insert(name, filename, text, true)
	return nil
}

// RebuildAll rereads stage files and recompiles every record in place.
func (s *Source) RebuildAll() error {
	if err := s.guard.Check("shader.RebuildAll"); err != nil {
		return err
	}
	s.sources.clear()

	s.mu.RLock()
	keys := make([]Key, len(s.infos))
	for i := range s.infos {
		keys[i] = s.infos[i].Key
	}
	s.mu.RUnlock()

	fresh := make([]Info, len(keys))
	for id := 1; id < len(keys); id++ {
		fresh[id] = s.generate(keys[id])
	}

	var old []gpu.ProgramHandle
	s.mu.Lock()
	for id := 1; id < len(fresh); id++ {
		old = append(old, s.infos[id].Program)
		s.infos[id] = fresh[id]
	}
	s.mu.Unlock()

	s.release(old)
	logging.Logger().Info("shader: rebuilt shaders", "count", len(keys)-1)
	return nil
}

func (s *Source) release(progs []gpu.ProgramHandle) {
	if s.factory == nil {
		return
	}
	for _, p := range progs {
		if p != 0 {
			s.factory.ReleaseProgram(p)
		}
	}
}

// Close drops queued requests. Called on the owner it also releases every
// program.
func (s *Source) Close() {
	s.queue.Close()
	if !s.guard.IsOwner() {
		return
	}
	s.mu.Lock()
	var progs []gpu.ProgramHandle
	for i := range s.infos {
		progs = append(progs, s.infos[i].Program)
		s.infos[i].Program = 0
	}
	s.mu.Unlock()
	s.release(progs)
}
