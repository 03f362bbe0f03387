// Package web serves an HTTP inspector over the texture and shader sources.
// Handlers run on the net/http goroutines and act as consumers; the goroutine
// that calls Run is the owner of both sources.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"voxel-assets/internal/logging"
	"voxel-assets/internal/shader"
	"voxel-assets/internal/texsource"
)

// ErrStopped is returned to handlers once the owner loop has exited.
var ErrStopped = errors.New("web: owner loop stopped")

type task struct {
	fn   func() error
	done chan error
}

// Server routes inspector requests to the sources.
type Server struct {
	textures *texsource.Source
	shaders  *shader.Source
	tasks    chan task
	stopped  chan struct{}
	router   *mux.Router
}

// New creates a server over sources owned by the calling goroutine.
func New(textures *texsource.Source, shaders *shader.Source) *Server {
	s := &Server{
		textures: textures,
		shaders:  shaders,
		tasks:    make(chan task),
		stopped:  make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/texture", s.handleTexture).Methods(http.MethodGet)
	r.HandleFunc("/json/texture", s.handleTextureInfo).Methods(http.MethodGet)
	r.HandleFunc("/json/textures", s.handleTextureList).Methods(http.MethodGet)
	r.HandleFunc("/json/palette", s.handlePalette).Methods(http.MethodGet)
	r.HandleFunc("/json/shader/{name}/{material}/{draw}", s.handleShader).Methods(http.MethodGet)
	r.HandleFunc("/upload/source/{name}", s.handleUploadSource).Methods(http.MethodPost)
	r.HandleFunc("/action/rebuild", s.handleRebuild).Methods(http.MethodPost)
	s.router = r
	return s
}

// Handler returns the routes wrapped with panic recovery and, when accessLog
// is not nil, combined-format access logging.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	var h http.Handler = s.router
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, h)
	}
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

// Run serves the request queues and owner tasks until ctx is done. It must be
// called on the goroutine that created the sources.
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	defer close(s.stopped)
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-s.tasks:
			t.done <- t.fn()
		case <-ticker.C:
			if _, err := s.textures.ProcessQueue(); err != nil {
				return err
			}
			if s.shaders != nil {
				if _, err := s.shaders.ProcessQueue(); err != nil {
					return err
				}
			}
		}
	}
}

// onOwner runs fn on the owner goroutine and returns its error.
func (s *Server) onOwner(ctx context.Context, fn func() error) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case s.tasks <- t:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-s.stopped:
		return ErrStopped
	}
}

// ListenAndServe serves HTTP on addr in the background and runs the owner
// loop on the calling goroutine until ctx is done.
func ListenAndServe(ctx context.Context, addr string, s *Server, accessLog io.Writer) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(accessLog)}

	errc := make(chan error, 1)
	go func() {
		logging.Logger().Info("web: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	failed := make(chan error, 1)
	go func() {
		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				failed <- fmt.Errorf("web: serve %s: %w", addr, err)
			}
			cancel()
		case <-runCtx.Done():
		}
	}()

	err := s.Run(runCtx, 0)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx)

	select {
	case serr := <-failed:
		return serr
	default:
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}
