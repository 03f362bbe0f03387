package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/davecgh/go-spew/spew"

	"voxel-assets/internal/config"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/modifier"
	"voxel-assets/internal/tile"
)

var dumper = &spew.ConfigState{Indent: "  ", DisableCapacities: true, DisablePointerAddresses: true}

// writeImage writes img as WebP or PNG, chosen by the extension of path.
func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func dumpExpr(cfg config.Settings, expr, out string, tree bool) error {
	if tree {
		x, err := modifier.Parse(expr)
		if err != nil {
			return err
		}
		dumper.Dump(x)
	}

	engine := modifier.NewEngine(cfg.NewTextureCache(), cfg.ModifierOptions())
	img, err := engine.Generate(expr)
	if err != nil {
		return err
	}
	fmt.Printf("OK  %s -> %dx%d\n", expr, img.Rect.Dx(), img.Rect.Dy())
	if out == "" {
		return nil
	}
	if err := writeImage(out, img); err != nil {
		return err
	}
	fmt.Printf("    written to %s\n", out)
	return nil
}

func dumpTile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var spec tile.Spec
	if err := spec.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("%s (%d bytes, version %d)\n", path, len(data), tile.Version)
	dumper.Dump(spec)
	return nil
}

func dumpPalette(cfg config.Settings, name string) error {
	img := cfg.NewTextureCache().GetOrLoad(name)
	if img == nil {
		return fmt.Errorf("palette source %s not found", name)
	}
	pal := modifier.BuildPalette(name, img)
	for i, c := range pal {
		fmt.Printf("%3d  #%02x%02x%02x%02x\n", i, c.R, c.G, c.B, c.A)
	}
	return nil
}

func main() {
	configFile := flag.String("config", "", "Path to a JSON or YAML settings file")
	baseDir := flag.String("base", "", "Base directory holding textures/base/pack")
	texturePath := flag.String("textures", ".", "Texture search path list")
	expr := flag.String("expr", "", "Texture expression to evaluate")
	out := flag.String("o", "", "Write the evaluated image to this .png or .webp file")
	tree := flag.Bool("tree", false, "Dump the parsed expression tree")
	tileFile := flag.String("tile", "", "Decode and dump a serialized tile definition")
	palette := flag.String("palette", "", "Print the 256 entries of a palette image")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logging.SetLogger(logging.NewTextLogger(os.Stderr, *verbose))

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{BaseDir: *baseDir, TexturePath: *texturePath})

	errors := 0
	if *expr != "" {
		if err := dumpExpr(cfg, *expr, *out, *tree); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
		}
	}
	if *tileFile != "" {
		if err := dumpTile(*tileFile); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
		}
	}
	if *palette != "" {
		if err := dumpPalette(cfg, *palette); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %v\n", err)
			errors++
		}
	}
	if *expr == "" && *tileFile == "" && *palette == "" {
		flag.Usage()
		os.Exit(2)
	}
	if errors > 0 {
		fmt.Printf("\nDone with %d error(s).\n", errors)
		os.Exit(1)
	}
}
