//go:build !assetdebug

package shader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voxel-assets/internal/broker"
	"voxel-assets/internal/gpu"
)

func writeStage(t *testing.T, root, name, file, text string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testOptions(shaderPath string) Options {
	return Options{
		EnableShaders:   true,
		ShaderPath:      shaderPath,
		FogStart:        0.4,
		WavingWater:     true,
		WaterWaveHeight: 1,
		WaterWaveLength: 20,
		WaterWaveSpeed:  5,
		WaitTimeout:     50 * time.Millisecond,
	}
}

func TestBaseMaterial(t *testing.T) {
	tests := []struct {
		m    Material
		want gpu.BaseMaterial
	}{
		{MaterialOpaque, gpu.Solid},
		{MaterialLiquidOpaque, gpu.Solid},
		{MaterialWavingLiquidOpaque, gpu.Solid},
		{MaterialAlpha, gpu.AlphaChannel},
		{MaterialPlainAlpha, gpu.AlphaChannel},
		{MaterialLiquidTransparent, gpu.AlphaChannel},
		{MaterialWavingLiquidTransparent, gpu.AlphaChannel},
		{MaterialBasic, gpu.AlphaRef},
		{MaterialPlain, gpu.AlphaRef},
		{MaterialWavingLeaves, gpu.AlphaRef},
		{MaterialWavingPlants, gpu.AlphaRef},
		{MaterialWavingLiquidBasic, gpu.AlphaRef},
	}
	for _, tt := range tests {
		if got := tt.m.BaseMaterial(); got != tt.want {
			t.Errorf("%s.BaseMaterial() = %s, want %s", tt.m, got, tt.want)
		}
	}
}

func TestParseNames(t *testing.T) {
	if m, err := ParseMaterial("waving-leaves"); err != nil || m != MaterialWavingLeaves {
		t.Errorf("ParseMaterial = %v, %v", m, err)
	}
	if m, err := ParseMaterial("TILE_MATERIAL_PLAIN_ALPHA"); err != nil || m != MaterialPlainAlpha {
		t.Errorf("ParseMaterial = %v, %v", m, err)
	}
	if d, err := ParseDraw("plantlike_rooted"); err != nil || d != DrawPlantlikeRooted {
		t.Errorf("ParseDraw = %v, %v", d, err)
	}
	if _, err := ParseDraw("cubic"); err == nil {
		t.Error("ParseDraw accepted an unknown name")
	}
}

func TestHeader(t *testing.T) {
	opts := testOptions("")
	opts.ToneMapping = true
	h := Header(opts, MaterialWavingPlants, DrawPlantlike)

	for _, want := range []string{
		"#define NDT_NORMAL 0\n",
		"#define NDT_PLANTLIKE_ROOTED 17\n",
		"#define TILE_MATERIAL_BASIC 0\n",
		"#define TILE_MATERIAL_PLAIN_ALPHA 11\n",
		"#define MATERIAL_TYPE 5\n",
		"#define DRAW_TYPE 9\n",
		"#define ENABLE_WAVING_WATER 1\n",
		"#define WATER_WAVE_HEIGHT 1.000000\n",
		"#define WATER_WAVE_LENGTH 20.000000\n",
		"#define WATER_WAVE_SPEED 5.000000\n",
		"#define ENABLE_WAVING_LEAVES 0\n",
		"#define ENABLE_WAVING_PLANTS 0\n",
		"#define ENABLE_TONE_MAPPING\n",
		"#define FOG_START 0.400000\n",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header lacks %q", want)
		}
	}
	if strings.Contains(h, "#version") {
		t.Error("header carries a #version line")
	}
	if n := strings.Count(h, "#define NDT_"); n != 18 {
		t.Errorf("%d NDT defines, want 18", n)
	}
	if n := strings.Count(h, "#define TILE_MATERIAL_"); n != 12 {
		t.Errorf("%d TILE_MATERIAL defines, want 12", n)
	}

	opts.WavingWater = false
	opts.ToneMapping = false
	h = Header(opts, MaterialOpaque, DrawNormal)
	if !strings.Contains(h, "#define ENABLE_WAVING_WATER 0\n") || strings.Contains(h, "WATER_WAVE_HEIGHT") {
		t.Error("waving water off still defines wave parameters")
	}
	if strings.Contains(h, "ENABLE_TONE_MAPPING") {
		t.Error("tone mapping define without tone mapping")
	}
}

func TestShaderIDFromFiles(t *testing.T) {
	root := t.TempDir()
	writeStage(t, root, "nodes", VertexFile, "void main() { /* vs */ }")
	writeStage(t, root, "nodes", PixelFile, "void main() { /* fs */ }")
	mem := gpu.NewMemory()
	s := New(mem, testOptions(root))
	t.Cleanup(s.Close)
	ctx := context.Background()

	id, err := s.ShaderID(ctx, "nodes", MaterialAlpha, DrawGlasslike)
	if err != nil || id == 0 {
		t.Fatalf("ShaderID = %d, %v", id, err)
	}
	if again, _ := s.ShaderID(ctx, "nodes", MaterialAlpha, DrawGlasslike); again != id {
		t.Errorf("same key gave %d and %d", id, again)
	}
	other, _ := s.ShaderID(ctx, "nodes", MaterialOpaque, DrawGlasslike)
	if other == id {
		t.Error("different material shares an id")
	}

	info, ok := s.Info(id)
	if !ok || info.Program == 0 || info.BaseMaterial != gpu.AlphaChannel {
		t.Fatalf("Info = %+v, %v", info, ok)
	}
	if !strings.HasSuffix(info.Vertex, "/* vs */ }") || !strings.Contains(info.Vertex, "#define MATERIAL_TYPE 1\n") {
		t.Errorf("vertex source = %q", info.Vertex)
	}
	if info.Geometry != "" {
		t.Error("geometry stage invented")
	}
	prog, _ := mem.Program(info.Program)
	if prog.Base != gpu.AlphaChannel {
		t.Errorf("compiled with base %s", prog.Base)
	}
}

func TestNullShader(t *testing.T) {
	s := New(gpu.NewMemory(), testOptions(""))
	t.Cleanup(s.Close)
	if id, err := s.ShaderID(context.Background(), "", MaterialAlpha, DrawNormal); id != 0 || err != nil {
		t.Errorf("empty name = %d, %v", id, err)
	}
	info, ok := s.Info(0)
	if !ok || info.Material != MaterialOpaque || info.BaseMaterial != gpu.Solid || info.Program != 0 {
		t.Errorf("null shader = %+v", info)
	}
}

func TestShadersDisabled(t *testing.T) {
	mem := gpu.NewMemory()
	opts := testOptions("")
	opts.EnableShaders = false
	s := New(mem, opts)
	t.Cleanup(s.Close)

	id, _ := s.ShaderID(context.Background(), "nodes", MaterialWavingLeaves, DrawAllFaces)
	info, _ := s.Info(id)
	if info.Program != 0 || info.Vertex != "" || info.BaseMaterial != gpu.AlphaRef {
		t.Errorf("disabled shader = %+v", info)
	}
	if mem.Programs() != 0 {
		t.Error("compiled with shaders disabled")
	}
}

func TestCompileFailureKeepsRecord(t *testing.T) {
	mem := gpu.NewMemory()
	mem.Reject = func(string) bool { return true }
	s := New(mem, testOptions(""))
	t.Cleanup(s.Close)
	if err := s.InsertSource("bad", VertexFile, "x"); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertSource("bad", PixelFile, "y"); err != nil {
		t.Fatal(err)
	}
	id, err := s.ShaderID(context.Background(), "bad", MaterialBasic, DrawNormal)
	if err != nil || id == 0 {
		t.Fatalf("ShaderID = %d, %v", id, err)
	}
	if info, _ := s.Info(id); info.Program != 0 || info.Pixel == "" {
		t.Errorf("record = %+v", info)
	}
}

func TestInsertSourcePrefersDisk(t *testing.T) {
	root := t.TempDir()
	writeStage(t, root, "sky", VertexFile, "disk vertex")
	s := New(gpu.NewMemory(), testOptions(root))
	t.Cleanup(s.Close)
	if err := s.InsertSource("sky", VertexFile, "inserted vertex"); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertSource("sky", PixelFile, "inserted pixel"); err != nil {
		t.Fatal(err)
	}
	id, _ := s.ShaderID(context.Background(), "sky", MaterialOpaque, DrawNormal)
	info, _ := s.Info(id)
	if !strings.HasSuffix(info.Vertex, "disk vertex") || !strings.HasSuffix(info.Pixel, "inserted pixel") {
		t.Errorf("vertex %q pixel %q", info.Vertex, info.Pixel)
	}
}

func TestQueueFromOtherGoroutines(t *testing.T) {
	root := t.TempDir()
	writeStage(t, root, "nodes", VertexFile, "v")
	writeStage(t, root, "nodes", PixelFile, "p")
	mem := gpu.NewMemory()
	s := New(mem, testOptions(root))
	t.Cleanup(s.Close)

	const n = 4
	ids := make([]ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = s.ShaderID(context.Background(), "nodes", MaterialBasic, DrawNodebox)
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
	for i := range ids {
		if ids[i] == 0 || ids[i] != ids[0] {
			t.Errorf("consumer %d got %d", i, ids[i])
		}
	}
	if mem.Programs() != 1 {
		t.Errorf("programs = %d, want 1", mem.Programs())
	}

	errc := make(chan error, 1)
	go func() { errc <- s.RebuildAll() }()
	if err := <-errc; !errors.Is(err, broker.ErrNotOwner) {
		t.Errorf("RebuildAll off owner: %v", err)
	}
}

func TestRebuildAllRereadsFiles(t *testing.T) {
	root := t.TempDir()
	writeStage(t, root, "nodes", VertexFile, "old vertex")
	writeStage(t, root, "nodes", PixelFile, "p")
	mem := gpu.NewMemory()
	s := New(mem, testOptions(root))
	t.Cleanup(s.Close)

	id, _ := s.ShaderID(context.Background(), "nodes", MaterialOpaque, DrawNormal)
	before, _ := s.Info(id)
	writeStage(t, root, "nodes", VertexFile, "new vertex")
	if err := s.RebuildAll(); err != nil {
		t.Fatal(err)
	}
	after, _ := s.Info(id)
	if !strings.HasSuffix(after.Vertex, "new vertex") {
		t.Errorf("vertex after rebuild = %q", after.Vertex)
	}
	if after.Key != before.Key {
		t.Error("key changed across rebuild")
	}
	if _, ok := mem.Program(before.Program); ok {
		t.Error("old program not released")
	}
	if mem.Programs() != 1 {
		t.Errorf("programs = %d, want 1", mem.Programs())
	}
}
