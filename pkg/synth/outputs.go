package synth

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdejongh/audiopatch/internal/platform"
	"github.com/sdejongh/audiopatch/pkg/audiofile"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

// DeleteAudioFiles removes every recognized audio file below root except
// keep, then prunes the directories left empty. Files that cannot be
// removed are left in place.
func DeleteAudioFiles(root, keep string) error {
	if !platform.IsDir(root) {
		return nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !audiofile.IsAudioFile(p) {
			return nil
		}
		if keep != "" && strings.EqualFold(filepath.Clean(p), filepath.Clean(keep)) {
			return nil
		}
		os.Remove(p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete audio files: %w", err)
	}

	DeleteEmptyDirectories(root)
	return nil
}

// DeleteEmptyDirectories removes empty directories below root, deepest
// first, so that parents emptied along the way go too. Root itself is kept.
func DeleteEmptyDirectories(root string) {
	var dirs []string
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			os.Remove(dir)
		}
	}
}

// HasAnyAudioFiles reports whether root contains at least one recognized audio file
func HasAnyAudioFiles(root string) bool {
	found := false
	filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && audiofile.IsAudioFile(p) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// ClearPreviousOutputs deletes the named archives at the top of root and
// every loose audio file below it, then prunes empty directories
func ClearPreviousOutputs(root string, archiveNames ...string) error {
	if strings.TrimSpace(root) == "" {
		return nil
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range archiveNames {
		if name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(root, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete previous archive: %w", err)
		}
	}

	return DeleteAudioFiles(root, "")
}

// CopyDir copies every file below src into dst, overwriting existing files
func CopyDir(ctx context.Context, src, dst string) error {
	from, err := storage.NewLocal(src)
	if err != nil {
		return err
	}
	defer from.Close()

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	to, err := storage.NewLocal(dst)
	if err != nil {
		return err
	}
	defer to.Close()

	files, err := from.List(ctx, "")
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := copyEntry(ctx, from, to, f); err != nil {
			return err
		}
	}
	return nil
}

func copyEntry(ctx context.Context, from storage.Lister, to storage.Backend, f storage.FileInfo) error {
	reader, err := from.Read(ctx, f.RelativePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := to.Write(ctx, filepath.FromSlash(f.RelativePath), reader, f.Size); err != nil {
		return fmt.Errorf("failed to copy %s: %w", f.RelativePath, err)
	}
	return nil
}

// moveFile renames src to dst, copying when they sit on different volumes
func moveFile(src, dst string) error {
	if err := rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	dir, err := storage.NewLocal(filepath.Dir(dst))
	if err != nil {
		return err
	}
	if err := dir.Write(context.Background(), filepath.Base(dst), in, -1); err != nil {
		return err
	}

	in.Close()
	return os.Remove(src)
}
