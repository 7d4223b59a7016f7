// Package cache maps source identities to temporary files produced from them
// (extracted archive entries, transcoded audio). Entries are add-only for the
// lifetime of a session.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileCache is a concurrency-safe map from a key to a file on disk
type FileCache struct {
	mu    sync.Mutex
	dir   string
	files map[string]string
}

// New creates a cache that places its files under dir.
// An empty dir uses a fresh directory below the system temp directory.
func New(dir string) (*FileCache, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "audiopatch-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{
		dir:   dir,
		files: make(map[string]string),
	}, nil
}

// Dir returns the directory holding cached files
func (c *FileCache) Dir() string {
	return c.dir
}

// ArchiveKey returns the case-insensitive key of an archive entry
func ArchiveKey(archivePath, entryPath string) string {
	return strings.ToLower(archivePath + "|" + entryPath)
}

// PathFor returns the path in the cache directory for key, ending in name.
// The same key always maps to the same file, so a persistent cache
// directory holds one file per entry across runs.
func (c *FileCache) PathFor(key, name string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
	return filepath.Join(c.dir, id.String()+"_"+filepath.Base(name))
}

// Get returns the cached file for key if it still exists
func (c *FileCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lookup(key)
}

// GetOrCreate returns the cached file for key, calling create to produce it
// on a miss. The lock is held across create so concurrent callers for the
// same key produce the file once.
func (c *FileCache) GetOrCreate(key string, create func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.lookup(key); ok {
		return path, nil
	}

	path, err := create()
	if err != nil {
		return "", err
	}
	c.files[key] = path
	return path, nil
}

// Len returns the number of cached entries
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.files)
}

// Clear deletes every cached file and forgets all entries
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for key, path := range c.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
		delete(c.files, key)
	}
	return firstErr
}

// lookup must be called with mu held. A file deleted behind the cache's
// back counts as a miss.
func (c *FileCache) lookup(key string) (string, bool) {
	path, ok := c.files[key]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		delete(c.files, key)
		return "", false
	}
	return path, true
}
