package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		file string
		body string
	}{
		{"cfg.json", `{"bilinear_filter": true, "texture_min_size": 32, "enable_shaders": false, "fog_start": 0.7}`},
		{"cfg.yaml", "bilinear_filter: true\ntexture_min_size: 32\nenable_shaders: false\nfog_start: 0.7\n"},
	}
	for _, tt := range tests {
		cfg, err := Load(writeFile(t, tt.file, tt.body))
		if err != nil {
			t.Fatalf("%s: %v", tt.file, err)
		}
		if !cfg.BilinearFilter || cfg.TextureMinSize != 32 || cfg.EnableShaders || cfg.FogStart != 0.7 {
			t.Errorf("%s: %+v", tt.file, cfg)
		}
		if cfg.WaterWaveLength != 20 {
			t.Errorf("%s: unset key lost its default: %v", tt.file, cfg.WaterWaveLength)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeFile(t, "bad.json", "{")); err == nil {
		t.Error("bad JSON accepted")
	}
	if _, err := Load(writeFile(t, "cfg.toml", "x = 1")); err == nil {
		t.Error("unknown extension accepted")
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.FogStart = 1.5
	cfg.TextureMinSize = 0
	cfg.Resolve(Flags{BaseDir: "/srv/game", OutputDir: "out"})

	if cfg.FogStart != 0.99 {
		t.Errorf("FogStart = %v, want clamped 0.99", cfg.FogStart)
	}
	if cfg.TextureMinSize != 64 {
		t.Errorf("TextureMinSize = %d", cfg.TextureMinSize)
	}
	if cfg.BasePack != filepath.Join("/srv/game", "textures", "base", "pack") {
		t.Errorf("BasePack = %q", cfg.BasePack)
	}
	if cfg.OutputDir != filepath.Join("/srv/game", "out") {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Workers != runtime.NumCPU() || cfg.Listen != ":8080" {
		t.Errorf("Workers = %d, Listen = %q", cfg.Workers, cfg.Listen)
	}

	cfg.FogStart = -1
	cfg.Resolve(Flags{Workers: 3})
	if cfg.FogStart != 0 || cfg.Workers != 3 {
		t.Errorf("FogStart = %v, Workers = %d", cfg.FogStart, cfg.Workers)
	}
}

func TestDerivedOptions(t *testing.T) {
	cfg := Default()
	cfg.TrilinearFilter = true
	cfg.TextureCleanTransparent = true
	cfg.EnableWavingWater = true
	cfg.TexturePath = "a" + string(os.PathListSeparator) + "b"
	cfg.Resolve(Flags{})

	if roots := cfg.TextureRoots(); len(roots) != 2 || roots[0] != "a" || roots[1] != "b" {
		t.Errorf("TextureRoots = %v", roots)
	}
	to := cfg.TextureOptions()
	if !to.Mipmaps || !to.Modifier.TrilinearFilter || !to.Modifier.CleanTransparent || to.Modifier.MinTextureSize != 64 {
		t.Errorf("TextureOptions = %+v", to)
	}
	so := cfg.ShaderOptions()
	if !so.EnableShaders || !so.WavingWater || so.WaterWaveSpeed != 5 || so.FogStart != 0.4 {
		t.Errorf("ShaderOptions = %+v", so)
	}
}
