package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"voxel-assets/internal/config"
	"voxel-assets/internal/gpu"
	"voxel-assets/internal/logging"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
	"voxel-assets/internal/web"
)

func main() {
	configFile := flag.String("config", "", "Path to a JSON or YAML settings file")
	baseDir := flag.String("base", "", "Base directory holding textures/base/pack and client/shaders")
	texturePath := flag.String("textures", "", "Texture search path list")
	shaderPath := flag.String("shaders", "", "Shader override directory")
	listen := flag.String("listen", "", "Listen address (default :8080)")
	access := flag.Bool("access-log", false, "Write an access log to stdout")
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
	cfg.Resolve(config.Flags{
		BaseDir:     *baseDir,
		TexturePath: *texturePath,
		ShaderPath:  *shaderPath,
		Listen:      *listen,
	})

	// The sources are owned by this goroutine, which runs the owner loop.
	mem := gpu.NewMemory()
	textures := texsource.New(cfg.NewTextureCache(), mem, cfg.TextureOptions())
	defer textures.Close()
	shaders := shader.New(mem, cfg.ShaderOptions())
	defer shaders.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Asset inspector on %s\n", cfg.Listen)
	var accessLog io.Writer
	if *access {
		accessLog = os.Stdout
	}
	srv := web.New(textures, shaders)
	if err := web.ListenAndServe(ctx, cfg.Listen, srv, accessLog); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
