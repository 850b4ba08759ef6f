package store

import (
	"fmt"
	"sync"

	"docqa/internal/port"
)

// Registry hands out one Collection per (directory, name) pair. It replaces
// a hidden singleton: callers hold a Registry value and pass it down, and
// invalidation is an explicit operation rather than static state.
type Registry struct {
	mu   sync.Mutex
	open map[string]*Collection
}

func NewRegistry() *Registry {
	return &Registry{open: make(map[string]*Collection)}
}

func key(dir, name string) string {
	return fmt.Sprintf("%s\x00%s", dir, name)
}

// Open returns the cached collection for the pair, opening it on first use.
func (r *Registry) Open(dir, name string, embedder port.Embedder) (*Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(dir, name)
	if c, ok := r.open[k]; ok {
		return c, nil
	}

	c, err := Open(dir, name, embedder)
	if err != nil {
		return nil, err
	}
	r.open[k] = c
	return c, nil
}

// Invalidate drops the cached collection for the pair, closing it. The next
// Open reopens from disk.
func (r *Registry) Invalidate(dir, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(dir, name)
	if c, ok := r.open[k]; ok {
		c.Close()
		delete(r.open, k)
	}
}

// CloseAll closes every cached collection and empties the registry.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for k, c := range r.open {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.open, k)
	}
	return firstErr
}
