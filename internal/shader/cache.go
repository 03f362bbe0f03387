package shader

import (
	"os"
	"path/filepath"
	"sync"

	"voxel-assets/internal/logging"
)

// Stage file names inside a shader directory.
const (
	VertexFile   = "opengl_vertex.glsl"
	PixelFile    = "opengl_fragment.glsl"
	GeometryFile = "opengl_geometry.glsl"
)

type sourceKey struct{ name, file string }

type sourceEntry struct {
	text        string
	fromDisk    bool
	preferLocal bool
}

// sourceCache holds shader stage text by shader name and file name. Files
// are read from the shader path first, then from the built-in directory.
type sourceCache struct {
	roots []string

	mu      sync.RWMutex
	entries map[sourceKey]sourceEntry
}

func newSourceCache(shaderPath, builtin string) *sourceCache {
	var roots []string
	for _, r := range []string{shaderPath, builtin} {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return &sourceCache{roots: roots, entries: make(map[sourceKey]sourceEntry)}
}

func (c *sourceCache) get(name, file string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[sourceKey{name, file}]
	return e.text, ok
}

// getOrLoad returns the stage text, reading it on first use. A stage found
// nowhere is cached as empty.
func (c *sourceCache) getOrLoad(name, file string) string {
	if text, ok := c.get(name, file); ok {
		return text
	}
	text, _ := c.read(name, file)
	c.mu.Lock()
	if e, ok := c.entries[sourceKey{name, file}]; ok {
		c.mu.Unlock()
		return e.text
	}
	c.entries[sourceKey{name, file}] = sourceEntry{text: text, fromDisk: true}
	c.mu.Unlock()
	return text
}

func (c *sourceCache) read(name, file string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, root := range c.roots {
		path := filepath.Join(root, name, file)
		data, err := os.ReadFile(path)
		if err == nil {
			logging.Logger().Debug("shader: loaded source", "path", path)
			return string(data), true
		}
	}
	return "", false
}

// insert stores text for name/file. With preferLocal a file on disk wins.
func (c *sourceCache) insert(name, file, text string, preferLocal bool) {
	e := sourceEntry{text: text, preferLocal: preferLocal}
	if preferLocal {
		if disk, ok := c.read(name, file); ok {
			e.text, e.fromDisk = disk, true
		}
	}
	c.mu.Lock()
	c.entries[sourceKey{name, file}] = e
	c.mu.Unlock()
}

// clear forgets everything read from disk.
func (c *sourceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.fromDisk && !e.preferLocal {
			delete(c.entries, k)
		}
	}
}
