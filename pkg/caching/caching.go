// Package caching keeps LLM outputs on disk so repeated runs over the same
// article do not pay for the same completion twice.
package caching

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hughisie/agent0-article-pipeline/pkg/storage"
)

const entrySuffix = ".cache"

// Cache provides a file-based cache with a TTL. Entries are written
// atomically, so concurrent pipeline workers can share one directory.
type Cache struct {
	path  string
	ttl   time.Duration
	store *storage.Storage
	now   func() time.Time
}

// NewCache creates a new Cache instance.
// The cache path will be created if it doesn't exist.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		path:  path,
		ttl:   ttl,
		store: &storage.Storage{},
		now:   time.Now,
	}, nil
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// key hashes an arbitrary cache key into a filename.
func (c *Cache) key(k string) string {
	return ContentHash([]byte(k)) + entrySuffix
}

func (c *Cache) expired(modTime time.Time) bool {
	return c.ttl > 0 && c.now().Sub(modTime) > c.ttl
}

// Get returns the data stored under k when present and not expired.
func (c *Cache) Get(k string) ([]byte, bool) {
	filePath := filepath.Join(c.path, c.key(k))

	stats, err := c.store.GetFileStats(filePath)
	if err != nil || c.expired(stats.ModTime) {
		return nil, false
	}

	data, err := c.store.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores data under k.
func (c *Cache) Set(k string, data []byte) error {
	if err := c.store.SaveFile(filepath.Join(c.path, c.key(k)), data); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Prune removes expired entries and returns how many were removed.
func (c *Cache) Prune() (int, error) {
	entries, err := os.ReadDir(c.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entrySuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !c.expired(info.ModTime()) {
			continue
		}
		if err := os.Remove(filepath.Join(c.path, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
