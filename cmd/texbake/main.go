package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voxel-assets/internal/batch"
	"voxel-assets/internal/config"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/texsource"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a JSON or YAML settings file")
	listFile := flag.String("list", "", "File with one texture expression per line")
	testN := flag.Int("test", 0, "Bake only the first N expressions")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	baseDir := flag.String("base", "", "Base directory holding textures/base/pack and client/shaders")
	texturePath := flag.String("textures", "", "Texture search path list")
	outputDir := flag.String("output", "", "Output directory (default: baked)")
	forMesh := flag.Bool("mesh", false, "Bake the mesh-filtered variant of every expression")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	logging.SetLogger(logging.NewTextLogger(os.Stderr, *verbose))

	// Load config
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		BaseDir:     *baseDir,
		TexturePath: *texturePath,
		OutputDir:   *outputDir,
		Workers:     *workers,
	})

	// Collect expressions
	exprs := flag.Args()
	if *listFile != "" {
		listed, err := batch.ReadExprs(*listFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading list: %v\n", err)
			os.Exit(1)
		}
		exprs = append(exprs, listed...)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(exprs) {
		exprs = exprs[:*testN]
	}

	if len(exprs) == 0 {
		fmt.Println("No expressions to bake.")
		os.Exit(0)
	}

	cache := cfg.NewTextureCache()
	src := texsource.New(cache, gpu.NewMemory(), cfg.TextureOptions())
	defer src.Close()

	mode := ""
	if *forMesh {
		mode = " (mesh)"
	} else if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("Texture expressions → WebP%s\n", mode)
	fmt.Printf("Expressions: %d, Workers: %d\n", len(exprs), cfg.Workers)
	fmt.Printf("Roots: %d, Base pack: %s\n", len(cfg.TextureRoots()), cfg.BasePack)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	jobs := batch.NewJobs(exprs)
	results, err := batch.Run(context.Background(), batch.Config{
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		ForMesh:   *forMesh,
		Progress: func(done, total int, rate float64) {
			fmt.Printf("  [%d/%d] %.1f textures/sec\n", done, total, rate)
		},
	}, src, jobs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Baked: %d/%d (%d distinct textures)\n", success, len(jobs), src.Len()-1)

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Expr, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
