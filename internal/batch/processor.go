package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"voxel-assets/internal/nametable"
	"voxel-assets/internal/texsource"

	"github.com/HugoSmits86/nativewebp"
)

// Config holds the options of a bake run.
type Config struct {
	OutputDir string
	Workers   int
	// ForMesh bakes the mesh-filtered variant of every expression.
	ForMesh bool
	// PumpInterval is how often the owner drains the request queue.
	PumpInterval time.Duration
	// Progress is called periodically with the number of finished jobs.
	Progress func(done, total int, rate float64)
}

// Result holds the outcome of baking one job.
type Result struct {
	Expr    string
	File    string
	ID      nametable.ID
	Size    image.Point
	Success bool
	Error   string
}

// Run bakes every job through src. It must be called on the goroutine that
// created src: workers request textures concurrently while Run serves the
// request queue until they all finish.
func Run(ctx context.Context, cfg Config, src *texsource.Source, jobs []Job) ([]Result, error) {
	// Nothing would ever serve the workers off the owner goroutine.
	if _, err := src.ProcessQueue(); err != nil {
		return nil, fmt.Errorf("batch: run: %w", err)
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	pump := cfg.PumpInterval
	if pump <= 0 {
		pump = 2 * time.Millisecond
	}

	start := time.Now()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(ctx, cfg, src, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	go func() {
		for i := range jobs {
			jobChan <- i
		}
		close(jobChan)
	}()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	// Owner loop: serve requests and report progress
	ticker := time.NewTicker(pump)
	defer ticker.Stop()
	lastReport := start
	for {
		select {
		case <-finished:
			return results, nil
		case <-ticker.C:
			src.ProcessQueue()
			if cfg.Progress != nil && time.Since(lastReport) >= 2*time.Second {
				lastReport = time.Now()
				p := processed.Load()
				if p > 0 {
					cfg.Progress(int(p), total, float64(p)/time.Since(start).Seconds())
				}
			}
		}
	}
}

func processJob(ctx context.Context, cfg Config, src *texsource.Source, job Job) Result {
	res := Result{Expr: job.Expr, File: job.File}

	var (
		id  nametable.ID
		tex texsource.Texture
		err error
	)
	if cfg.ForMesh {
		id, err = src.TextureForMesh(ctx, job.Expr)
		if err == nil {
			tex, _ = src.Texture(id)
		}
	} else {
		id, tex, err = src.TextureByName(ctx, job.Expr)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.ID = id
	if tex.Image == nil || tex.Image.Rect.Empty() {
		res.Error = "empty texture"
		return res
	}
	res.Size = tex.Image.Rect.Size()

	// Save as WebP
	outPath := filepath.Join(cfg.OutputDir, job.File)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	f, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	if err := nativewebp.Encode(f, tex.Image, nil); err != nil {
		res.Error = fmt.Sprintf("WebP encode: %v", err)
		return res
	}

	res.Success = true
	return res
}
