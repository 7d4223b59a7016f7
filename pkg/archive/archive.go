// Package archive provides read-only access to Bethesda archive containers
// (BSA and BA2). Readers list entries with their relative paths and fetch
// an entry's decompressed bytes.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/audiopatch/pkg/audiofile"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

// ErrUnsupported is returned for containers this package cannot read
var ErrUnsupported = errors.New("unsupported archive format")

// ErrCorrupt is returned when a container's structure is inconsistent
var ErrCorrupt = errors.New("corrupt archive")

// EntryNotFoundError reports an entry missing from an archive
type EntryNotFoundError struct {
	Entry   string
	Archive string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry %q not found in archive %s", e.Entry, e.Archive)
}

// Reader is an opened archive container.
// List's path argument is an optional prefix filter; "" lists every entry.
type Reader interface {
	storage.Lister

	// Path returns the container file path
	Path() string

	// ReadEntry returns the decompressed bytes of a listed entry
	ReadEntry(entry storage.FileInfo) ([]byte, error)
}

// Opener opens archive containers
type Opener interface {
	Open(path string) (Reader, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string) (Reader, error)

// Open calls f(path)
func (f OpenerFunc) Open(path string) (Reader, error) {
	return f(path)
}

// DefaultOpener opens containers from disk, sniffing the format from the magic bytes
var DefaultOpener Opener = OpenerFunc(Open)

// format decodes the stored bytes of one entry
type format interface {
	readEntry(r io.ReaderAt, e *entry) ([]byte, error)
}

// entry is one file record of a container
type entry struct {
	name       string // as stored, BSA uses '\'
	offset     int64
	size       uint32 // stored bytes
	unpacked   uint32 // 0 when only known after decoding
	compressed bool
}

// Open opens the container at path
func Open(path string) (Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	var magic [4]byte
	if _, err := file.ReadAt(magic[:], 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read archive header: %w", err)
	}

	var (
		f       format
		entries []entry
	)
	switch string(magic[:]) {
	case bsaMagic:
		f, entries, err = readBSA(file)
	case ba2Magic:
		f, entries, err = readBA2(file)
	default:
		err = fmt.Errorf("%w: unknown magic %q", ErrUnsupported, magic[:])
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}

	c := &container{
		path:    path,
		file:    file,
		format:  f,
		entries: entries,
		index:   make(map[string]int, len(entries)),
		modTime: info.ModTime(),
		size:    info.Size(),
	}
	for i := range entries {
		c.index[lookupKey(entries[i].name)] = i
	}

	return c, nil
}

// container implements Reader for both formats
type container struct {
	path    string
	file    *os.File
	format  format
	entries []entry
	index   map[string]int
	modTime time.Time
	size    int64
}

// Path returns the container file path
func (c *container) Path() string {
	return c.path
}

// List returns the entries whose relative path starts with prefix
func (c *container) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	prefix = lookupKey(prefix)
	files := make([]storage.FileInfo, 0, len(c.entries))

	for i := range c.entries {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &c.entries[i]
		if prefix != "" && !strings.HasPrefix(lookupKey(e.name), prefix) {
			continue
		}
		files = append(files, c.fileInfo(e))
	}

	return files, nil
}

// Read opens an entry for reading
func (c *container) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.readPath(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadEntry returns the decompressed bytes of a listed entry
func (c *container) ReadEntry(info storage.FileInfo) ([]byte, error) {
	return c.readPath(info.RelativePath)
}

// Close releases the underlying file
func (c *container) Close() error {
	return c.file.Close()
}

func (c *container) readPath(path string) ([]byte, error) {
	i, ok := c.index[lookupKey(path)]
	if !ok {
		return nil, &EntryNotFoundError{Entry: path, Archive: c.path}
	}

	e := &c.entries[i]
	if e.offset < 0 || e.offset+int64(e.size) > c.size {
		return nil, fmt.Errorf("failed to read %s from %s: %w: entry extends past the end of the file", path, c.path, ErrCorrupt)
	}

	data, err := c.format.readEntry(c.file, e)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", path, c.path, err)
	}
	return data, nil
}

func (c *container) fileInfo(e *entry) storage.FileInfo {
	size := int64(e.unpacked)
	if size == 0 {
		size = int64(e.size)
	}
	return storage.FileInfo{
		Path:         e.name,
		RelativePath: audiofile.NormalizeArchivePath(e.name),
		Size:         size,
		ModTime:      c.modTime,
	}
}

// lookupKey normalizes an entry path for case-insensitive matching
func lookupKey(p string) string {
	return strings.ToLower(audiofile.NormalizeArchivePath(p))
}

// readAt reads exactly n bytes at off
func readAt(r io.ReaderAt, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}
