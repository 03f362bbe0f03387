package texture

import (
	"path/filepath"
	"strings"
	"sync"
)

// imageExtensions are probed in order when resolving a name on disk.
var imageExtensions = []string{".png", ".jpg", ".bmp", ".tga", ".webp"}

type resolved struct {
	path     string
	basePack bool
}

// Index resolves texture names to files under the configured search roots.
// Roots are tried in order, the base pack last. Every answer, including
// "not found", is remembered until Invalidate.
type Index struct {
	roots    []string
	basePack string

	mu    sync.Mutex
	paths map[string]resolved
}

// NewIndex creates an index over the given search roots and base pack dir.
// Empty roots are skipped; basePack may be empty.
func NewIndex(roots []string, basePack string) *Index {
	idx := &Index{
		basePack: basePack,
		paths:    make(map[string]resolved),
	}
	for _, r := range roots {
		if r != "" {
			idx.roots = append(idx.roots, r)
		}
	}
	return idx
}

// SplitRoots splits a texture_path setting into its roots.
func SplitRoots(list string) []string {
	if list == "" {
		return nil
	}
	return filepath.SplitList(list)
}

// ResolvePath returns the file for a texture name and whether it came from
// the base pack. It returns ("", false) when nothing matches.
func (idx *Index) ResolvePath(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	idx.mu.Lock()
	if r, ok := idx.paths[name]; ok {
		idx.mu.Unlock()
		return r.path, r.basePack
	}
	idx.mu.Unlock()

	var r resolved
	for _, root := range idx.roots {
		if p := imagePath(root, name); p != "" {
			r.path = p
			break
		}
	}
	if r.path == "" && idx.basePack != "" {
		if p := imagePath(idx.basePack, name); p != "" {
			r = resolved{path: p, basePack: true}
		}
	}

	idx.mu.Lock()
	idx.paths[name] = r
	idx.mu.Unlock()
	return r.path, r.basePack
}

// Invalidate forgets every cached resolution.
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	idx.paths = make(map[string]resolved)
	idx.mu.Unlock()
}

// Len returns the number of cached resolutions, negative ones included.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.paths)
}

// imagePath joins name to root and probes the known extensions. A name
// without a known extension is treated as PNG first.
func imagePath(root, name string) string {
	full := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}

	stem := full
	ext := strings.ToLower(filepath.Ext(full))
	if knownExtension(ext) {
		stem = strings.TrimSuffix(full, filepath.Ext(full))
	}
	for _, e := range imageExtensions {
		if p := stem + e; fileExists(p) {
			return p
		}
	}
	return ""
}

func knownExtension(ext string) bool {
	for _, e := range imageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
