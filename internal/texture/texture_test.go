package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	base := t.TempDir()
	writePNG(t, filepath.Join(root, "stone.png"), solid(2, 2, color.NRGBA{1, 2, 3, 255}))
	writePNG(t, filepath.Join(base, "dirt.png"), solid(2, 2, color.NRGBA{4, 5, 6, 255}))

	idx := NewIndex([]string{root}, base)

	tests := []struct {
		name     string
		wantPath string
		wantBase bool
	}{
		{"stone.png", filepath.Join(root, "stone.png"), false},
		{"stone", filepath.Join(root, "stone.png"), false},
		{"stone.jpg", filepath.Join(root, "stone.png"), false},
		{"dirt.png", filepath.Join(base, "dirt.png"), true},
		{"missing.png", "", false},
		{"../escape.png", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		path, basePack := idx.ResolvePath(tt.name)
		if path != tt.wantPath || basePack != tt.wantBase {
			t.Errorf("ResolvePath(%q) = (%q, %v), want (%q, %v)", tt.name, path, basePack, tt.wantPath, tt.wantBase)
		}
	}
}

func TestResolvePathCachesMisses(t *testing.T) {
	root := t.TempDir()
	idx := NewIndex([]string{root}, "")

	if p, _ := idx.ResolvePath("late.png"); p != "" {
		t.Fatalf("unexpected hit %q", p)
	}
	writePNG(t, filepath.Join(root, "late.png"), solid(1, 1, color.NRGBA{A: 255}))
	if p, _ := idx.ResolvePath("late.png"); p != "" {
		t.Errorf("negative answer was not cached, got %q", p)
	}
	idx.Invalidate()
	if p, _ := idx.ResolvePath("late.png"); p == "" {
		t.Error("Invalidate did not drop the negative answer")
	}
}

func TestCacheInsertPreferLocal(t *testing.T) {
	root := t.TempDir()
	base := t.TempDir()
	local := color.NRGBA{10, 20, 30, 255}
	writePNG(t, filepath.Join(root, "override.png"), solid(2, 2, local))
	writePNG(t, filepath.Join(base, "basepack.png"), solid(2, 2, local))

	c := NewCache(NewIndex([]string{root}, base))
	supplied := solid(4, 4, color.NRGBA{200, 0, 0, 255})

	c.Insert("override.png", supplied, true)
	if got := c.Get("override.png"); got == supplied || got.NRGBAAt(0, 0) != local {
		t.Error("local file should shadow the supplied image")
	}

	c.Insert("basepack.png", supplied, true)
	if got := c.Get("basepack.png"); got != supplied {
		t.Error("base pack files must not shadow supplied images")
	}

	c.Insert("override.png", supplied, false)
	if got := c.Get("override.png"); got != supplied {
		t.Error("Insert without preferLocal should store the supplied image")
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), solid(3, 2, color.NRGBA{9, 9, 9, 255}))
	c := NewCache(NewIndex([]string{root}, ""))

	if c.Get("a.png") != nil {
		t.Fatal("Get must not read the disk")
	}
	img := c.GetOrLoad("a.png")
	if img == nil || img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("GetOrLoad(a.png) = %v", img)
	}
	if again := c.GetOrLoad("a.png"); again != img {
		t.Error("second read should return the same buffer")
	}
	if c.GetOrLoad("nope.png") != nil {
		t.Error("missing file should yield nil")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheProbeAndClear(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "disk.png"), solid(1, 1, color.NRGBA{A: 255}))
	c := NewCache(NewIndex([]string{root}, ""))

	if !c.Probe("disk.png") {
		t.Error("Probe(disk.png) = false")
	}
	if c.Probe("server.png") {
		t.Error("Probe(server.png) = true before insertion")
	}
	c.Insert("server.png", solid(1, 1, color.NRGBA{A: 255}), false)
	c.MarkKnown("server.png")
	if !c.Probe("server.png") {
		t.Error("Probe(server.png) = false after MarkKnown")
	}

	c.GetOrLoad("disk.png")
	c.Clear()
	if c.Get("disk.png") != nil {
		t.Error("Clear should drop disk-loaded images")
	}
	if c.Get("server.png") == nil || !c.Probe("server.png") {
		t.Error("Clear should keep inserted images")
	}
}

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.RGBA{255, 0, 0, 255})
	got := ToNRGBA(src)
	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if c := got.NRGBAAt(0, 0); c != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(3, 2, color.NRGBA{10, 20, 30, 255})); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 2) || img.NRGBAAt(2, 1) != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("decoded %v %v", img.Bounds(), img.NRGBAAt(2, 1))
	}
	if _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("garbage decoded")
	}
}

// tgaPixel encodes a 1x1 uncompressed 32-bit TGA image.
func tgaPixel(c color.NRGBA) []byte {
	header := []byte{
		0, 0, 2, // no id, no colour map, uncompressed true colour
		0, 0, 0, 0, 0,
		0, 0, 0, 0, // origin
		1, 0, 1, 0, // 1x1
		32, 0x28, // 32 bpp, top-left origin, 8 alpha bits
	}
	return append(header, c.B, c.G, c.R, c.A)
}

func TestLoadImageFormats(t *testing.T) {
	dir := t.TempDir()
	want := color.NRGBA{10, 20, 30, 255}

	pngPath := filepath.Join(dir, "stone.png")
	writePNG(t, pngPath, solid(2, 2, want))
	tgaPath := filepath.Join(dir, "wood.tga")
	if err := os.WriteFile(tgaPath, tgaPixel(want), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{pngPath, tgaPath} {
		img, err := LoadImage(path)
		if err != nil {
			t.Errorf("LoadImage(%s): %v", filepath.Base(path), err)
			continue
		}
		if got := img.NRGBAAt(0, 0); got != want {
			t.Errorf("LoadImage(%s) pixel = %v, want %v", filepath.Base(path), got, want)
		}
	}

	img, err := DecodeImage(bytes.NewReader(tgaPixel(want)))
	if err != nil {
		t.Fatalf("DecodeImage(tga): %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != want {
		t.Errorf("DecodeImage(tga) pixel = %v", got)
	}
}
