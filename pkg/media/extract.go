package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sdejongh/audiopatch/pkg/archive"
	"github.com/sdejongh/audiopatch/pkg/audiofile"
	"github.com/sdejongh/audiopatch/pkg/cache"
	"github.com/sdejongh/audiopatch/pkg/models"
)

// Extractor resolves a variant to a file on disk
type Extractor struct {
	Cache  *cache.FileCache
	Opener archive.Opener
}

// NewExtractor creates an extractor writing archive entries into c
func NewExtractor(c *cache.FileCache) *Extractor {
	return &Extractor{Cache: c, Opener: archive.DefaultOpener}
}

// SourceFile returns the loose path of v, or a cached temporary copy of its
// archive entry. Each entry is extracted at most once per cache.
func (e *Extractor) SourceFile(ctx context.Context, v *models.Variant) (string, error) {
	if v == nil {
		return "", fmt.Errorf("no variant")
	}
	if !v.FromArchive {
		return v.OriginPath, nil
	}
	if strings.TrimSpace(v.ArchivePath) == "" {
		return "", fmt.Errorf("variant %s is from an archive but has no archive path", v.Key)
	}

	key := cache.ArchiveKey(v.ArchivePath, v.OriginPath)
	return e.Cache.GetOrCreate(key, func() (string, error) {
		return e.extract(ctx, key, v.ArchivePath, v.OriginPath)
	})
}

func (e *Extractor) extract(ctx context.Context, key, archivePath, entry string) (string, error) {
	opener := e.Opener
	if opener == nil {
		opener = archive.DefaultOpener
	}

	r, err := opener.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	src, err := r.Read(ctx, entry)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out := e.Cache.PathFor(key, path.Base(audiofile.NormalizeArchivePath(entry)))
	if err := writeFile(out, src); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", entry, err)
	}
	return out, nil
}

func writeFile(dest string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}
	return f.Close()
}
