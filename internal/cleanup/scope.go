// Package cleanup removes the temporary files produced while ingesting stories.
package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scope owns a per-story work directory and any extra paths registered with it.
// Close removes all of them and is safe to call more than once.
type Scope struct {
	dir string

	mu    sync.Mutex
	paths []string
	keep  map[string]bool
	done  bool
}

// NewScope creates root/<uuid> and returns a scope owning it.
func NewScope(root string) (*Scope, error) {
	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Scope{dir: dir, keep: map[string]bool{}}, nil
}

// Path returns name inside the work directory.
func (s *Scope) Path(name string) string { return filepath.Join(s.dir, name) }

// Track registers a path outside the work directory for removal on Close.
func (s *Scope) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// Keep exempts a previously tracked path from removal.
func (s *Scope) Keep(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep[path] = true
}

// Close removes tracked paths and the work directory.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true

	var errs []error
	for _, p := range s.paths {
		if s.keep[p] {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
