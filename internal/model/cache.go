package model

import (
	"context"
	"errors"
	"sync"
)

// ErrCacheClosed is returned by Get after Close.
var ErrCacheClosed = errors.New("model cache closed")

// Loader builds a backend. It is called at most once per successful load.
type Loader func(ctx context.Context) (Backend, error)

// Cache holds the process-wide model backend. The first successful load
// is kept and shared read-only by every request until Close. A failed
// load is not cached; the next Get tries again.
type Cache struct {
	load Loader

	mu      sync.RWMutex
	backend Backend
	closed  bool
}

func NewCache(load Loader) *Cache {
	return &Cache{load: load}
}

// Get returns the loaded backend, loading it on first use.
func (c *Cache) Get(ctx context.Context) (Backend, error) {
	c.mu.RLock()
	b, closed := c.backend, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrCacheClosed
	}
	if b != nil {
		return b, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

// Loaded reports whether a backend is currently held.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil
}

// Close releases the backend. Later Get calls fail with ErrCacheClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
	c.closed = true
}
