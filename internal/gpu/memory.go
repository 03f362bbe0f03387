package gpu

import (
	"fmt"
	"image"
	"sync"
)

// Memory is a Driver and ProgramFactory that keeps everything in process
// memory. Headless tools and tests use it in place of a GPU.
type Memory struct {
	// Reject makes CompileProgram fail for matching program names.
	Reject func(name string) bool

	mu       sync.Mutex
	next     uint32
	textures map[TextureHandle]MemoryTexture
	programs map[ProgramHandle]MemoryProgram
}

// MemoryTexture is what Memory stores per texture.
type MemoryTexture struct {
	Name    string
	Image   *image.NRGBA
	Mipmaps bool
}

// MemoryProgram is what Memory stores per program.
type MemoryProgram struct {
	Name   string
	Source ProgramSource
	Base   BaseMaterial
}

// NewMemory creates an empty in-memory driver.
func NewMemory() *Memory {
	return &Memory{
		textures: make(map[TextureHandle]MemoryTexture),
		programs: make(map[ProgramHandle]MemoryProgram),
	}
}

func (m *Memory) CreateTexture(name string, img *image.NRGBA, mipmaps bool) (TextureHandle, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, fmt.Errorf("gpu: create texture %s: empty image", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := TextureHandle(m.next)
	m.textures[h] = MemoryTexture{Name: name, Image: img, Mipmaps: mipmaps}
	return h, nil
}

func (m *Memory) ReleaseTexture(h TextureHandle) {
	m.mu.Lock()
	delete(m.textures, h)
	m.mu.Unlock()
}

// Texture returns the stored texture for h.
func (m *Memory) Texture(h TextureHandle) (MemoryTexture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.textures[h]
	return t, ok
}

// Textures returns the number of live textures.
func (m *Memory) Textures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textures)
}

func (m *Memory) CompileProgram(name string, src ProgramSource, base BaseMaterial) (ProgramHandle, error) {
	if src.Vertex == "" || src.Pixel == "" {
		return 0, fmt.Errorf("%w: %s: missing vertex or pixel source", ErrCompile, name)
	}
	if m.Reject != nil && m.Reject(name) {
		return 0, fmt.Errorf("%w: %s: rejected", ErrCompile, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := ProgramHandle(m.next)
	m.programs[h] = MemoryProgram{Name: name, Source: src, Base: base}
	return h, nil
}

func (m *Memory) ReleaseProgram(h ProgramHandle) {
	m.mu.Lock()
	delete(m.programs, h)
	m.mu.Unlock()
}

// Program returns the stored program for h.
func (m *Memory) Program(h ProgramHandle) (MemoryProgram, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[h]
	return p, ok
}

// Programs returns the number of live programs.
func (m *Memory) Programs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.programs)
}
