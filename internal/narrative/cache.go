package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCacheFile is the cache location used by the CLI.
const DefaultCacheFile = "data/narrative_cache.json"

// Entry is one cached narrative.
type Entry struct {
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is a JSON file of narratives keyed by digest signature. The whole
// file is read on first use and rewritten through a temp file on every Put.
// One writer process is assumed; the mutex serializes callers in-process.
type Cache struct {
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]Entry
}

// NewCache returns a cache backed by path. The file is created on first Put.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the backing file.
func (c *Cache) Path() string { return c.path }

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return Entry{}, false, err
	}
	e, ok := c.entries[key]
	return e, ok, nil
}

// Put stores an entry and persists the cache.
func (c *Cache) Put(key string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}
	c.entries[key] = e
	return c.save()
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return 0, err
	}
	return len(c.entries), nil
}

func (c *Cache) load() error {
	if c.loaded {
		return nil
	}
	c.entries = make(map[string]Entry)

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read narrative cache: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			return fmt.Errorf("failed to parse narrative cache %s: %w", c.path, err)
		}
	}
	c.loaded = true
	return nil
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal narrative cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".narrative_cache.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write narrative cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close narrative cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace narrative cache: %w", err)
	}
	return nil
}
