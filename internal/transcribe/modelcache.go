package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// modelCache keeps the last N resolved model files so repeated tasks with the
// same model skip the filesystem probe. Eviction only drops the handle; model
// files on disk are never touched.
type modelCache struct {
	mu      sync.Mutex
	max     int
	order   []string          // model names, least recently used first
	entries map[string]string // model name -> resolved path
}

func newModelCache(max int) *modelCache {
	if max <= 0 {
		max = 2
	}
	return &modelCache{max: max, entries: make(map[string]string)}
}

// resolve returns the on-disk path for a model name, probing modelDir on a
// cache miss.
func (c *modelCache) resolve(modelDir, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.entries[name]; ok {
		c.touch(name)
		return path, nil
	}

	path := filepath.Join(modelDir, fmt.Sprintf("ggml-%s.bin", name))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("whisper model %q not found at %s: %w", name, path, err)
	}

	c.entries[name] = path
	c.order = append(c.order, name)
	if len(c.order) > c.max {
		evicted := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evicted)
	}
	return path, nil
}

func (c *modelCache) touch(name string) {
	for i, n := range c.order {
		if n == name {
			c.order = append(append([]string{}, c.order[:i]...), c.order[i+1:]...)
			c.order = append(c.order, name)
			return
		}
	}
}

// len reports the number of cached handles. Used by tests.
func (c *modelCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
