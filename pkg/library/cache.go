package library

import (
	"sync"

	"github.com/teslashibe/go-mocap/pkg/motion"
)

// clipCache parses each capture once and hands out deep copies, so presets
// that share a source file can be cleaned independently.
type clipCache struct {
	loader motion.Loader

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	raw  *motion.Motion
	err  error
}

func newClipCache(loader motion.Loader) *clipCache {
	return &clipCache{
		loader:  loader,
		entries: make(map[string]*cacheEntry),
	}
}

// Load implements motion.Loader.
func (c *clipCache) Load(path string) (*motion.Motion, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok {
		e = &cacheEntry{}
		c.entries[path] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.raw, e.err = c.loader.Load(path)
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.raw.Clone()
}

// Len returns the number of cached paths.
func (c *clipCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
