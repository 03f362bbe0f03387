package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"voxel-assets/internal/modifier"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
	"voxel-assets/internal/texture"
)

// Settings holds the asset pipeline settings and the tool options.
type Settings struct {
	// Texture filtering
	TrilinearFilter         bool `json:"trilinear_filter" yaml:"trilinear_filter"`
	BilinearFilter          bool `json:"bilinear_filter" yaml:"bilinear_filter"`
	TextureMinSize          int  `json:"texture_min_size" yaml:"texture_min_size"`
	TextureCleanTransparent bool `json:"texture_clean_transparent" yaml:"texture_clean_transparent"`

	// Search roots. TexturePath is a list in the OS path-list format.
	ShaderPath  string `json:"shader_path" yaml:"shader_path"`
	TexturePath string `json:"texture_path" yaml:"texture_path"`

	// Shader header values
	EnableShaders      bool    `json:"enable_shaders" yaml:"enable_shaders"`
	FogStart           float64 `json:"fog_start" yaml:"fog_start"`
	WaterWaveHeight    float64 `json:"water_wave_height" yaml:"water_wave_height"`
	WaterWaveLength    float64 `json:"water_wave_length" yaml:"water_wave_length"`
	WaterWaveSpeed     float64 `json:"water_wave_speed" yaml:"water_wave_speed"`
	EnableWavingWater  bool    `json:"enable_waving_water" yaml:"enable_waving_water"`
	EnableWavingLeaves bool    `json:"enable_waving_leaves" yaml:"enable_waving_leaves"`
	EnableWavingPlants bool    `json:"enable_waving_plants" yaml:"enable_waving_plants"`
	ToneMapping        bool    `json:"tone_mapping" yaml:"tone_mapping"`

	// Tools
	BaseDir   string `json:"base_dir" yaml:"base_dir"`
	BasePack  string `json:"base_pack" yaml:"base_pack"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Workers   int    `json:"workers" yaml:"workers"`
	Listen    string `json:"listen" yaml:"listen"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		TextureMinSize:  64,
		EnableShaders:   true,
		FogStart:        0.4,
		WaterWaveHeight: 1.0,
		WaterWaveLength: 20.0,
		WaterWaveSpeed:  5.0,
	}
}

// Load reads a JSON or YAML settings file, chosen by extension. Keys missing
// from the file keep their Default values.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json", "":
		err = json.Unmarshal(data, &cfg)
	default:
		return Settings{}, fmt.Errorf("config: %s: unknown format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	BaseDir     string
	TexturePath string
	ShaderPath  string
	OutputDir   string
	Workers     int
	Listen      string
}

// Resolve applies flag overrides, fills defaults and clamps values.
// CLI flags take priority when non-zero/non-empty.
func (c *Settings) Resolve(flags Flags) {
	if flags.BaseDir != "" {
		c.BaseDir = flags.BaseDir
	}
	if flags.TexturePath != "" {
		c.TexturePath = flags.TexturePath
	}
	if flags.ShaderPath != "" {
		c.ShaderPath = flags.ShaderPath
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Listen != "" {
		c.Listen = flags.Listen
	}

	if c.BaseDir != "" {
		if c.BasePack == "" {
			c.BasePack = filepath.Join(c.BaseDir, "textures", "base", "pack")
		} else if !filepath.IsAbs(c.BasePack) {
			c.BasePack = filepath.Join(c.BaseDir, c.BasePack)
		}
		if c.OutputDir != "" && !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(c.BaseDir, c.OutputDir)
		}
	}
	if c.OutputDir == "" {
		c.OutputDir = "baked"
	}

	if c.TextureMinSize <= 0 {
		c.TextureMinSize = 64
	}
	c.FogStart = min(max(c.FogStart, 0), 0.99)
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

// TextureRoots returns the texture search roots in priority order.
func (c Settings) TextureRoots() []string {
	return texture.SplitRoots(c.TexturePath)
}

// NewTextureCache builds the source cache over the configured roots.
func (c Settings) NewTextureCache() *texture.Cache {
	return texture.NewCache(texture.NewIndex(c.TextureRoots(), c.BasePack))
}

// ModifierOptions returns the settings that affect modifier output.
func (c Settings) ModifierOptions() modifier.Options {
	return modifier.Options{
		BilinearFilter:   c.BilinearFilter,
		TrilinearFilter:  c.TrilinearFilter,
		MinTextureSize:   c.TextureMinSize,
		CleanTransparent: c.TextureCleanTransparent,
	}
}

// TextureOptions returns the texture source settings.
func (c Settings) TextureOptions() texsource.Options {
	return texsource.Options{
		Modifier: c.ModifierOptions(),
		Mipmaps:  c.BilinearFilter || c.TrilinearFilter,
	}
}

// ShaderOptions returns the shader source settings.
func (c Settings) ShaderOptions() shader.Options {
	return shader.Options{
		EnableShaders:   c.EnableShaders,
		ShaderPath:      c.ShaderPath,
		BasePath:        c.BaseDir,
		FogStart:        float32(c.FogStart),
		WavingWater:     c.EnableWavingWater,
		WaterWaveHeight: float32(c.WaterWaveHeight),
		WaterWaveLength: float32(c.WaterWaveLength),
		WaterWaveSpeed:  float32(c.WaterWaveSpeed),
		WavingLeaves:    c.EnableWavingLeaves,
		WavingPlants:    c.EnableWavingPlants,
		ToneMapping:     c.ToneMapping,
	}
}
