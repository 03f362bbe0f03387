package texture

import (
	"image"
	"sync"

	"voxel-assets/internal/logging"
)

// Lookup returns a decoded source image by name, loading it on a miss.
// It returns nil when the name cannot be found anywhere.
type Lookup interface {
	GetOrLoad(name string) *image.NRGBA
}

// Source is one decoded source image.
type Source struct {
	Image *image.NRGBA
	// PreferLocal records that a file on disk was allowed to shadow the
	// supplied image at insertion time.
	PreferLocal bool
	// fromDisk entries are dropped by Clear; inserted ones survive.
	fromDisk bool
}

// Cache holds decoded source images keyed by name.
//
// Mutations (Insert, GetOrLoad, Clear) belong to the owner thread. Probe
// and MarkKnown only touch the existence map and are safe from any goroutine.
type Cache struct {
	index *Index

	mu     sync.RWMutex
	images map[string]*Source

	existMu sync.RWMutex
	exists  map[string]bool
}

// NewCache creates a source cache backed by the given index.
func NewCache(index *Index) *Cache {
	return &Cache{
		index:  index,
		images: make(map[string]*Source),
		exists: make(map[string]bool),
	}
}

// Insert stores img under name, replacing any previous entry. With
// preferLocal a matching file outside the base pack wins over img.
func (c *Cache) Insert(name string, img *image.NRGBA, preferLocal bool) {
	src := &Source{Image: img, PreferLocal: preferLocal}
	if preferLocal {
		if path, basePack := c.index.ResolvePath(name); path != "" && !basePack {
			local, err := LoadImage(path)
			if err != nil {
				logging.Logger().Warn("texture: local override unreadable", "name", name, "err", err)
			} else {
				src.Image = local
				src.fromDisk = true
			}
		}
	}

	c.mu.Lock()
	c.images[name] = src
	c.mu.Unlock()
}

// Get returns the cached image for name without touching the disk.
func (c *Cache) Get(name string) *image.NRGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.images[name]; ok {
		return s.Image
	}
	return nil
}

// GetOrLoad returns the cached image for name, reading it from disk on a
// miss. A failed load leaves the cache untouched and returns nil.
func (c *Cache) GetOrLoad(name string) *image.NRGBA {
	if img := c.Get(name); img != nil {
		return img
	}

	path, _ := c.index.ResolvePath(name)
	if path == "" {
		logging.Logger().Debug("texture: no path found", "name", name)
		return nil
	}
	logging.Logger().Debug("texture: loading", "name", name, "path", path)
	img, err := LoadImage(path)
	if err != nil {
		logging.Logger().Warn("texture: load failed", "name", name, "err", err)
		return nil
	}

	c.mu.Lock()
	// Another load may have won; keep the first entry so readers see one buffer.
	if s, ok := c.images[name]; ok {
		c.mu.Unlock()
		return s.Image
	}
	c.images[name] = &Source{Image: img, fromDisk: true}
	c.mu.Unlock()
	return img
}

// Probe reports whether name is known, either inserted or present on disk.
// Answers are memoized in the existence map.
func (c *Cache) Probe(name string) bool {
	c.existMu.RLock()
	known, ok := c.exists[name]
	c.existMu.RUnlock()
	if ok {
		return known
	}

	path, _ := c.index.ResolvePath(name)
	known = path != ""

	c.existMu.Lock()
	c.exists[name] = known
	c.existMu.Unlock()
	return known
}

// MarkKnown records that name exists without probing the disk.
func (c *Cache) MarkKnown(name string) {
	c.existMu.Lock()
	c.exists[name] = true
	c.existMu.Unlock()
}

// Clear drops every disk-loaded image and all cached path and existence
// answers. Inserted images stay, since nothing on disk can restore them.
func (c *Cache) Clear() {
	c.mu.Lock()
	kept := 0
	for name, s := range c.images {
		if s.fromDisk && !s.PreferLocal {
			delete(c.images, name)
			continue
		}
		kept++
	}
	c.mu.Unlock()

	c.existMu.Lock()
	c.exists = make(map[string]bool)
	for name := range c.snapshotNames() {
		c.exists[name] = true
	}
	c.existMu.Unlock()

	c.index.Invalidate()
	logging.Logger().Debug("texture: source cache cleared", "kept", kept)
}

func (c *Cache) snapshotNames() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make(map[string]struct{}, len(c.images))
	for name := range c.images {
		names[name] = struct{}{}
	}
	return names
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
