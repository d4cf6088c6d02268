// Package cache stores the diagnostics of analysis units on disk, keyed by
// a BLAKE3 hash of the unit's content and the effective configuration.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/zeebo/blake3"

	"github.com/panbanda/vigil/pkg/models"
)

// version is bumped whenever rule semantics change, so stale entries miss.
const version = "vigil-cache-v1"

// Cache provides file-based caching of unit diagnostics.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached unit.
type Entry struct {
	Hash        string              `json:"hash"`
	Timestamp   time.Time           `json:"timestamp"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

// New creates a new cache instance. A disabled cache misses every lookup
// and ignores stores.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether lookups can hit.
func (c *Cache) Enabled() bool { return c.enabled }

// HashFiles hashes the contents of paths, in the order given, together
// with the extra strings (configuration fingerprint, rule selection).
func HashFiles(paths []string, extra ...string) (string, error) {
	h := blake3.New()
	_, _ = h.Write([]byte(version))
	for _, s := range extra {
		_, _ = h.Write([]byte("\x00" + s))
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		_, _ = h.Write([]byte("\x00" + path + "\x00"))
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the diagnostics stored under key if the entry was computed
// from content with the given hash and has not expired.
func (c *Cache) Get(key, hash string) ([]models.Diagnostic, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Hash != hash {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}

	return entry.Diagnostics, true
}

// Set stores the diagnostics of the unit under key.
func (c *Cache) Set(key, hash string, diags []models.Diagnostic) error {
	if !c.enabled {
		return nil
	}

	entry := Entry{
		Hash:        hash,
		Timestamp:   time.Now(),
		Diagnostics: slices.Clone(diags),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return writeAtomic(c.keyPath(key), data)
}

// writeAtomic renames a fully written temporary file into place, so that
// workers analyzing other units never read a partial entry.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Invalidate removes a cache entry. Missing entries are not an error.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	if err := os.Remove(c.keyPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath hashes the key so any unit name is a valid file name. Entries
// are spread over 256 subdirectories by the first hash byte.
func (c *Cache) keyPath(key string) string {
	hash := blake3.Sum256([]byte(key))
	name := hex.EncodeToString(hash[:])
	return filepath.Join(c.dir, name[:2], name+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries" toon:"entries"`
	TotalSize int64         `json:"total_size" toon:"total_size"`
	OldestAge time.Duration `json:"oldest_age" toon:"oldest_age"`
	NewestAge time.Duration `json:"newest_age" toon:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
