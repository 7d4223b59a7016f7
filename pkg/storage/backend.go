package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a loose file or an archive entry
type FileInfo struct {
	// Path is the absolute path of a loose file, or the in-archive path of an entry
	Path string
	// RelativePath is relative to the backend root, always with '/' separators
	RelativePath string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	Permissions  uint32
}

// Lister enumerates the files a content source exposes
type Lister interface {
	// List returns all files below path recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Close releases any resources held by the backend
	Close() error
}

// Backend defines the interface for writable storage operations.
// The output root, the staging tree and extraction destinations use it;
// archive containers only implement Lister.
type Backend interface {
	Lister

	// Write creates or overwrites a file with the given content
	Write(ctx context.Context, path string, reader io.Reader, size int64) error

	// Delete removes a file or directory
	Delete(ctx context.Context, path string) error

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error
}
