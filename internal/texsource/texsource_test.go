//go:build !assetdebug

package texsource

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"voxel-assets/internal/broker"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/modifier"
	"voxel-assets/internal/nametable"
	"voxel-assets/internal/texture"
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
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newSource(t *testing.T, roots ...string) (*Source, *gpu.Memory) {
	t.Helper()
	mem := gpu.NewMemory()
	cache := texture.NewCache(texture.NewIndex(roots, ""))
	s := New(cache, mem, Options{
		Modifier:    modifier.Options{MinTextureSize: 16, BilinearFilter: true},
		Mipmaps:     true,
		WaitTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(s.Close)
	return s, mem
}

func TestTextureIDOnOwner(t *testing.T) {
	s, mem := newSource(t)
	if err := s.InsertSource("rock.png", solid(4, 4, color.NRGBA{90, 90, 90, 255})); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if id, err := s.TextureID(ctx, ""); id != 0 || err != nil {
		t.Errorf("empty name = %d, %v", id, err)
	}
	id, err := s.TextureID(ctx, "rock.png")
	if err != nil || id == 0 {
		t.Fatalf("TextureID = %d, %v", id, err)
	}
	again, _ := s.TextureID(ctx, "rock.png")
	if again != id {
		t.Errorf("second call = %d, want %d", again, id)
	}
	if got := s.TextureName(id); got != "rock.png" {
		t.Errorf("TextureName = %q", got)
	}
	if s.TextureName(0) != "" {
		t.Error("id 0 has a name")
	}

	tex, ok := s.Texture(id)
	if !ok || tex.Handle == 0 || !tex.Mipmaps {
		t.Fatalf("Texture = %+v, %v", tex, ok)
	}
	if up, _ := mem.Texture(tex.Handle); up.Name != "rock.png" {
		t.Errorf("uploaded as %q", up.Name)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestConcurrentRequestsShareOneBuild(t *testing.T) {
	s, mem := newSource(t)
	if err := s.InsertSource("rock.png", solid(2, 2, color.NRGBA{1, 2, 3, 255})); err != nil {
		t.Fatal(err)
	}

	const n = 8
	ids := make([]nametable.ID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.TextureID(context.Background(), "rock.png")
		}(i)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	deadline := time.After(5 * time.Second)
	for running := true; running; {
		select {
		case <-done:
			running = false
		case <-deadline:
			t.Fatal("consumers did not finish")
		default:
			if _, err := s.ProcessQueue(); err != nil {
				t.Fatal(err)
			}
			time.Sleep(time.Millisecond)
		}
	}

	for i := 0; i < n; i++ {
		if errs[i] != nil || ids[i] == 0 || ids[i] != ids[0] {
			t.Errorf("consumer %d = %d, %v", i, ids[i], errs[i])
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want exactly one new texture", s.Len())
	}
	if mem.Textures() != 1 {
		t.Errorf("uploads = %d, want 1", mem.Textures())
	}
}

func TestOwnerOnlyOperations(t *testing.T) {
	s, _ := newSource(t)
	errc := make(chan error, 3)
	go func() {
		_, err := s.ProcessQueue()
		errc <- err
		errc <- s.InsertSource("x.png", solid(1, 1, color.NRGBA{A: 255}))
		errc <- s.RebuildAll()
	}()
	for i := 0; i < 3; i++ {
		if err := <-errc; !errors.Is(err, broker.ErrNotOwner) {
			t.Errorf("call %d: err = %v, want ErrNotOwner", i, err)
		}
	}
}

func TestCloseReleasesWaiters(t *testing.T) {
	s, _ := newSource(t)
	errc := make(chan error, 1)
	go func() {
		_, err := s.TextureID(context.Background(), "never.png")
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, broker.ErrTimeout) {
			t.Errorf("err = %v, want ErrTimeout", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not released")
	}
}

func TestRebuildAllKeepsIDs(t *testing.T) {
	s, mem := newSource(t)
	ctx := context.Background()
	if err := s.InsertSource("a.png", solid(2, 2, color.NRGBA{255, 0, 0, 255})); err != nil {
		t.Fatal(err)
	}
	plain, _ := s.TextureID(ctx, "a.png")
	inverted, _ := s.TextureID(ctx, "a.png^[invert:rgb")
	before, _ := s.Texture(inverted)

	if err := s.InsertSource("a.png", solid(2, 2, color.NRGBA{0, 0, 255, 255})); err != nil {
		t.Fatal(err)
	}
	if err := s.RebuildAll(); err != nil {
		t.Fatal(err)
	}

	if s.TextureName(plain) != "a.png" || s.TextureName(inverted) != "a.png^[invert:rgb" {
		t.Error("names changed across rebuild")
	}
	after, _ := s.Texture(inverted)
	if got := after.Image.NRGBAAt(0, 0); got != (color.NRGBA{255, 255, 0, 255}) {
		t.Errorf("rebuilt pixel = %v", got)
	}
	if after.Handle == before.Handle {
		t.Error("handle not replaced")
	}
	if _, ok := mem.Texture(before.Handle); ok {
		t.Error("old handle not released")
	}
	if id, _ := s.TextureID(ctx, "a.png^[invert:rgb"); id != inverted {
		t.Errorf("id after rebuild = %d, want %d", id, inverted)
	}
}

func TestRebuildFailureKeepsOldTexture(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "disk.png")
	writePNG(t, path, solid(2, 2, color.NRGBA{10, 20, 30, 255}))
	s, _ := newSource(t, root)

	id, err := s.TextureID(context.Background(), "disk.png")
	if err != nil {
		t.Fatal(err)
	}
	before, _ := s.Texture(id)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := s.RebuildAll(); err != nil {
		t.Fatal(err)
	}
	after, _ := s.Texture(id)
	if after.Handle != before.Handle || after.Image != before.Image {
		t.Error("failed rebuild replaced the texture")
	}
}

func TestTextureForMesh(t *testing.T) {
	s, _ := newSource(t)
	ctx := context.Background()
	if err := s.InsertSource("small.png", solid(4, 2, color.NRGBA{5, 5, 5, 255})); err != nil {
		t.Fatal(err)
	}
	id, err := s.TextureForMesh(ctx, "small.png")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.TextureName(id); got != "small.png"+MeshSuffix {
		t.Errorf("name = %q", got)
	}
	tex, _ := s.Texture(id)
	if tex.Image.Bounds().Size() != image.Pt(32, 16) {
		t.Errorf("filtered size = %v, want 32x16", tex.Image.Bounds().Size())
	}
	if tex.OriginalSize != image.Pt(4, 2) {
		t.Errorf("OriginalSize = %v, want 4x2", tex.OriginalSize)
	}
	if size, _ := s.OriginalSize(ctx, "small.png"); size != image.Pt(4, 2) {
		t.Errorf("OriginalSize(name) = %v", size)
	}
}

func TestPaletteAndAverage(t *testing.T) {
	s, _ := newSource(t)
	pal := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	pal.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	pal.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	if err := s.InsertSource("pal.png", pal); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	p, err := s.Palette(ctx, "pal.png")
	if err != nil || p == nil || p[127] != (color.NRGBA{255, 0, 0, 255}) || p[128] != (color.NRGBA{0, 255, 0, 255}) {
		t.Fatalf("palette = %v, %v", p, err)
	}
	if again, _ := s.Palette(ctx, "pal.png"); again != p {
		t.Error("palette not cached")
	}
	if empty, err := s.Palette(ctx, ""); empty != nil || err != nil {
		t.Error("empty name has a palette")
	}

	avg, err := s.AverageColor(context.Background(), "pal.png")
	if err != nil {
		t.Fatal(err)
	}
	if avg != (color.NRGBA{127, 127, 0, 255}) {
		t.Errorf("AverageColor = %v", avg)
	}
	if !s.IsKnownSource("pal.png") || s.IsKnownSource("nothing.png") {
		t.Error("IsKnownSource wrong")
	}
}

func TestTextureForMeshWithoutFilters(t *testing.T) {
	cache := texture.NewCache(texture.NewIndex(nil, ""))
	s := New(cache, gpu.NewMemory(), Options{Modifier: modifier.Options{MinTextureSize: 16}})
	t.Cleanup(s.Close)
	if err := s.InsertSource("rock.png", solid(4, 4, color.NRGBA{90, 90, 90, 255})); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	plain, err := s.TextureID(ctx, "rock.png")
	if err != nil {
		t.Fatal(err)
	}
	mesh, err := s.TextureForMesh(ctx, "rock.png")
	if err != nil {
		t.Fatal(err)
	}
	if mesh != plain {
		t.Errorf("TextureForMesh = %d, want the plain id %d", mesh, plain)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestPaletteOffOwnerGoesThroughQueue(t *testing.T) {
	s, _ := newSource(t)
	if err := s.InsertSource("pal.png", solid(1, 1, color.NRGBA{0, 0, 255, 255})); err != nil {
		t.Fatal(err)
	}

	type result struct {
		p   *modifier.Palette
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := s.Palette(context.Background(), "pal.png")
		done <- result{p, err}
	}()

	// Nothing is built until the owner serves the request.
	deadline := time.After(5 * time.Second)
	for {
		if _, err := s.ProcessQueue(); err != nil {
			t.Fatal(err)
		}
		select {
		case r := <-done:
			if r.err != nil || r.p == nil || r.p[255] != (color.NRGBA{0, 0, 255, 255}) {
				t.Fatalf("palette = %v, %v", r.p, r.err)
			}
			if got := s.TextureName(1); got != "pal.png" {
				t.Errorf("palette image built as %q", got)
			}
			return
		case <-deadline:
			t.Fatal("palette request never served")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
