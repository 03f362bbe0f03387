//go:build !assetdebug

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxel-assets/internal/gpu"
	"voxel-assets/internal/modifier"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
	"voxel-assets/internal/texture"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newServer(t *testing.T) *Server {
	t.Helper()
	mem := gpu.NewMemory()
	cache := texture.NewCache(texture.NewIndex(nil, ""))
	textures := texsource.New(cache, mem, texsource.Options{
		Modifier:    modifier.Options{MinTextureSize: 16},
		WaitTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(textures.Close)
	if err := textures.InsertSource("grass.png", solid(2, 2, color.NRGBA{0, 200, 0, 255})); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	dir := filepath.Join(root, "nodes_shader")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{shader.VertexFile, shader.PixelFile} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("void main() {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	shaders := shader.New(mem, shader.Options{
		EnableShaders: true,
		ShaderPath:    root,
		FogStart:      0.4,
		WaitTimeout:   50 * time.Millisecond,
	})
	t.Cleanup(shaders.Close)
	return New(textures, shaders)
}

// serve runs the owner loop on the test goroutine while client issues
// requests from another goroutine.
func serve(t *testing.T, s *Server, client func(base string)) {
	t.Helper()
	ts := httptest.NewServer(s.Handler(nil))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		defer cancel()
		client(ts.URL)
	}()
	s.Run(ctx, time.Millisecond)
}

func getJSON(t *testing.T, url string, v any) int {
	resp, err := http.Get(url)
	if err != nil {
		t.Errorf("GET %s: %v", url, err)
		return 0
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Errorf("GET %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestTextureRoutes(t *testing.T) {
	s := newServer(t)
	serve(t, s, func(base string) {
		var info TextureInfo
		if code := getJSON(t, base+"/json/texture?expr=grass.png%5E%5Bresize:4x4", &info); code != http.StatusOK {
			t.Errorf("texture info status %d", code)
		}
		if info.ID != 1 || info.Width != 4 || info.Average != "#00c800ff" {
			t.Errorf("info = %+v", info)
		}

		resp, err := http.Get(base + "/texture?expr=grass.png")
		if err != nil {
			t.Error(err)
			return
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.Header.Get("Content-Type") != "image/webp" || !bytes.HasPrefix(data, []byte("RIFF")) {
			t.Errorf("texture: %s, %d bytes", resp.Header.Get("Content-Type"), len(data))
		}

		var names []string
		getJSON(t, base+"/json/textures", &names)
		if len(names) != 2 || names[0] != "grass.png^[resize:4x4" || names[1] != "grass.png" {
			t.Errorf("names = %q", names)
		}

		if code := getJSON(t, base+"/json/texture", nil); code != http.StatusBadRequest {
			t.Errorf("missing expr status %d", code)
		}

		var pal []string
		getJSON(t, base+"/json/palette?name=grass.png", &pal)
		if len(pal) != 256 || pal[0] != "#00c800ff" {
			t.Errorf("palette = %d entries", len(pal))
		}
		if code := getJSON(t, base+"/json/palette", nil); code != http.StatusNotFound {
			t.Errorf("empty palette status %d", code)
		}
	})
}

func TestShaderRoute(t *testing.T) {
	s := newServer(t)
	serve(t, s, func(base string) {
		var info ShaderInfo
		if code := getJSON(t, base+"/json/shader/nodes_shader/alpha/normal?sources=1", &info); code != http.StatusOK {
			t.Errorf("shader status %d", code)
		}
		if info.ID != 1 || info.BaseMaterial != "alpha_channel" || info.Program == 0 {
			t.Errorf("info = %+v", info)
		}
		if !bytes.Contains([]byte(info.Pixel), []byte("#define TILE_MATERIAL_ALPHA")) {
			t.Errorf("pixel source lacks the header")
		}
		if code := getJSON(t, base+"/json/shader/nodes_shader/shiny/normal", nil); code != http.StatusBadRequest {
			t.Errorf("bad material status %d", code)
		}
	})
}

func TestUploadAndRebuild(t *testing.T) {
	s := newServer(t)
	serve(t, s, func(base string) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, _ := mw.CreateFormFile("data", "sky.png")
		png.Encode(fw, solid(3, 3, color.NRGBA{0, 0, 255, 255}))
		mw.Close()

		resp, err := http.Post(base+"/upload/source/sky.png", mw.FormDataContentType(), &body)
		if err != nil {
			t.Error(err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("upload status %d", resp.StatusCode)
		}

		var info TextureInfo
		getJSON(t, base+"/json/texture?expr=sky.png", &info)
		if info.Width != 3 || info.Average != "#0000ffff" {
			t.Errorf("uploaded texture = %+v", info)
		}

		resp, err = http.Post(base+"/action/rebuild", "text/plain", nil)
		if err != nil {
			t.Error(err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("rebuild status %d", resp.StatusCode)
		}
	})
}
