package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TTLStatic is the default entry lifetime; the registry is republished at
// most daily.
const TTLStatic = 24 * time.Hour

// CacheEntry describes a cached file and its freshness
type CacheEntry struct {
	Path      string
	ExpiresAt time.Time
	FetchedAt time.Time
	Size      int64
}

// IsExpired returns true if the entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Age returns how long ago the entry was fetched
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}

// Open opens the cached file for reading
func (e *CacheEntry) Open() (*os.File, error) {
	return os.Open(e.Path)
}

// Cache stores downloaded files in a directory; an entry's fetch time is
// the file's modification time.
type Cache struct {
	mu  sync.Mutex
	dir string
	ttl time.Duration
}

// New creates a cache rooted at dir. The directory is created on first Put.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = TTLStatic
	}
	return &Cache{dir: dir, ttl: ttl}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// TTL returns the entry lifetime
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Path returns the file path used for key
func (c *Cache) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".cache")
}

// Get returns the entry for key, or nil if missing or expired
func (c *Cache) Get(key string) *CacheEntry {
	entry := c.GetEntry(key)
	if entry == nil || entry.IsExpired() {
		return nil
	}
	return entry
}

// GetEntry returns the entry for key even if it has expired
func (c *Cache) GetEntry(key string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return &CacheEntry{
		Path:      path,
		FetchedAt: info.ModTime(),
		ExpiresAt: info.ModTime().Add(c.ttl),
		Size:      info.Size(),
	}
}

// Put stores the content of r under key. The previous entry stays in place
// until r has been read completely.
func (c *Cache) Put(key string, r io.Reader) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write cache file: %w", err)
	}

	path := c.Path(key)
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to store cache file: %w", err)
	}

	now := time.Now()
	return &CacheEntry{
		Path:      path,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
		Size:      size,
	}, nil
}

// Delete removes an entry from cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes all entries from cache
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cache") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
