// Package site serves the browser frontend from a directory on disk.
package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// Error constants
var (
	ErrServe = errors.New("frontend serve failed")
)

// Register mounts the files under dir at /. An empty dir registers nothing.
// Routes registered on r before or after keep precedence over the files.
func Register(_ context.Context, r chi.Router, dir string) error {
	if r == nil {
		panic("router is nil")
	}
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrServe, dir)
	}

	r.Handle("/*", NewRootHandler(dir))
	return nil
}

// RootHandler serves static files, falling back to index.html for /.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler
func NewRootHandler(dir string) *RootHandler {
	return &RootHandler{files: http.FileServer(http.Dir(dir))}
}

// ServeHTTP only answers reads.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.files.ServeHTTP(w, r)
}
