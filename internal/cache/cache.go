// Package cache provides an explicit, caller-owned cache of parsed
// metadata files. Entries are keyed by absolute path and validated by
// modification time plus a SHA-256 content hash, so an unchanged file is
// never re-parsed and a touched-but-identical file is re-read once and
// then served from memory again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Entry is one cached parse with the identity it was validated against.
type Entry struct {
	File     *winmd.File
	Path     string
	Hash     string
	ModTime  time.Time
	Size     int64
	CachedAt time.Time
}

// Cache holds parsed metadata files. The zero value is not usable; call
// New. Every method is safe for concurrent use.
type Cache struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Load returns the parsed file at path, reusing the cached parse when the
// file identity still matches. The returned file is shared; callers must
// treat it as read-only.
func (c *Cache) Load(path string) (*winmd.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.entries[abs]
	c.mu.RUnlock()
	if ok && entry.ModTime.Equal(info.ModTime()) && entry.Size == info.Size() {
		return entry.File, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	hash := hashContent(data)
	if ok && entry.Hash == hash {
		// Touched but unchanged; refresh the stat identity and keep the
		// parse.
		c.mu.Lock()
		entry.ModTime = info.ModTime()
		entry.Size = info.Size()
		c.mu.Unlock()
		return entry.File, nil
	}

	file, derr := winmd.Load(data, filepath.Base(abs))
	if derr != nil {
		return nil, derr
	}

	c.mu.Lock()
	c.entries[abs] = &Entry{
		File:     file,
		Path:     abs,
		Hash:     hash,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		CachedAt: time.Now(),
	}
	c.mu.Unlock()
	return file, nil
}

// Invalidate removes the entry for path, if present.
func (c *Cache) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, abs)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a snapshot of the cached entries keyed by absolute
// path.
func (c *Cache) Entries() map[string]*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
