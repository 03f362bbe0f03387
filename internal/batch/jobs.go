package batch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Job is one expression to bake into File, relative to the output directory.
type Job struct {
	Expr string
	File string
}

// NewJobs numbers the expressions into sequential WebP file names.
func NewJobs(exprs []string) []Job {
	jobs := make([]Job, len(exprs))
	for i, e := range exprs {
		jobs[i] = Job{Expr: e, File: fmt.Sprintf("%04d.webp", i)}
	}
	return jobs
}

// ReadExprs reads one expression per line. Blank lines and lines starting
// with '#' are skipped.
func ReadExprs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open %s: %w", path, err)
	}
	defer f.Close()

	var exprs []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exprs = append(exprs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}
	return exprs, nil
}
