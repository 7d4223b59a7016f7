// Package synth materializes chosen winners into a patch directory: it
// stages the files, optionally packs them into one archive and swaps the
// result into place.
package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/audiopatch/internal/platform"
	"github.com/sdejongh/audiopatch/pkg/archive"
	"github.com/sdejongh/audiopatch/pkg/audiofile"
	"github.com/sdejongh/audiopatch/pkg/logging"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

// ProgressFunc is called after each winner is written
type ProgressFunc func(done, total int)

// Synthesizer writes one file per winner below an output root
type Synthesizer struct {
	Opener   archive.Opener
	Logger   logging.Logger
	Progress ProgressFunc
}

// NewSynthesizer creates a synthesizer reading archives from disk
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Opener: archive.DefaultOpener,
		Logger: logging.NewNullLogger(),
	}
}

// wanted is an archive entry to extract and where it goes
type wanted struct {
	entry string
	dest  string // relative to the output root
}

// archiveGroup collects the winners stored in one container
type archiveGroup struct {
	path    string
	entries map[string]wanted // by normalized lower-case entry path
}

// Synthesize writes the winners below root at their key path with the
// winner's extension. Loose winners are copied unless they already are the
// destination file. Archive winners are grouped so each container is
// opened and listed once; an entry missing from its container fails the
// whole call with *archive.EntryNotFoundError.
func (s *Synthesizer) Synthesize(ctx context.Context, root string, winners models.WinnerMap) (*models.SynthesisReport, error) {
	report := &models.SynthesisReport{
		OutputPath: root,
		StartTime:  time.Now(),
		Status:     models.StatusSuccess,
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return s.fail(report, fmt.Errorf("failed to create output directory: %w", err))
	}
	out, err := storage.NewLocal(root)
	if err != nil {
		return s.fail(report, err)
	}
	defer out.Close()

	total := len(winners)
	done := 0
	groups := make(map[string]*archiveGroup)

	for _, key := range winners.Keys() {
		if err := ctx.Err(); err != nil {
			report.Status = models.StatusCancelled
			report.Finish()
			return report, err
		}

		w := winners[key]
		if w == nil || key == "" || w.OriginPath == "" {
			continue
		}
		report.Winners++

		dest := filepath.FromSlash(key + audiofile.ExtensionOrDefault(w.OriginPath, audiofile.DefaultExtension))
		if !filepath.IsLocal(dest) {
			return s.fail(report, fmt.Errorf("winner for %q would be written outside %s", key, root))
		}

		if !w.FromArchive {
			copied, err := s.copyLoose(ctx, out, w.OriginPath, dest)
			if err != nil {
				return s.fail(report, err)
			}
			if copied {
				report.LooseCopied++
			} else {
				report.LooseSkipped++
			}
			done++
			s.progress(done, total)
			continue
		}

		if strings.TrimSpace(w.ArchivePath) == "" {
			return s.fail(report, fmt.Errorf("variant for %s is from an archive but has no archive path", key))
		}

		groupKey := strings.ToLower(w.ArchivePath)
		g, ok := groups[groupKey]
		if !ok {
			g = &archiveGroup{path: w.ArchivePath, entries: make(map[string]wanted)}
			groups[groupKey] = g
		}
		g.entries[entryKey(w.OriginPath)] = wanted{entry: w.OriginPath, dest: dest}
	}

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, k := range groupKeys {
		n, err := s.extractGroup(ctx, out, groups[k], func() {
			done++
			s.progress(done, total)
		})
		report.Extracted += n
		if err != nil {
			if errors.Is(err, context.Canceled) {
				report.Status = models.StatusCancelled
				report.Finish()
				return report, err
			}
			return s.fail(report, err)
		}
	}

	report.Finish()
	s.logger().Info(ctx, "winners written", logging.Fields{
		"output":    root,
		"copied":    report.LooseCopied,
		"skipped":   report.LooseSkipped,
		"extracted": report.Extracted,
	})
	return report, nil
}

// copyLoose copies src to dest below out and reports whether a copy happened
func (s *Synthesizer) copyLoose(ctx context.Context, out *storage.Local, src, dest string) (bool, error) {
	if platform.SameFile(src, filepath.Join(out.Root(), dest)) {
		return false, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open winner: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat winner: %w", err)
	}

	if err := out.Write(ctx, dest, f, info.Size()); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return true, nil
}

// extractGroup walks the container's entries once, writing every wanted one
func (s *Synthesizer) extractGroup(ctx context.Context, out *storage.Local, g *archiveGroup, written func()) (int, error) {
	opener := s.Opener
	if opener == nil {
		opener = archive.DefaultOpener
	}

	r, err := opener.Open(g.path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	entries, err := r.List(ctx, "")
	if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if len(g.entries) == 0 {
			break
		}
		k := entryKey(e.RelativePath)
		want, ok := g.entries[k]
		if !ok {
			continue
		}

		data, err := r.ReadEntry(e)
		if err != nil {
			return n, err
		}
		if err := out.Write(ctx, want.dest, bytes.NewReader(data), int64(len(data))); err != nil {
			return n, fmt.Errorf("failed to write %s: %w", want.dest, err)
		}
		delete(g.entries, k)
		n++
		written()
	}

	if len(g.entries) > 0 {
		missing := make([]string, 0, len(g.entries))
		for _, w := range g.entries {
			missing = append(missing, w.entry)
		}
		sort.Strings(missing)
		return n, &archive.EntryNotFoundError{Entry: missing[0], Archive: g.path}
	}

	return n, nil
}

func (s *Synthesizer) fail(report *models.SynthesisReport, err error) (*models.SynthesisReport, error) {
	report.Status = models.StatusFailed
	report.Finish()
	return report, err
}

func (s *Synthesizer) progress(done, total int) {
	if s.Progress != nil {
		s.Progress(done, total)
	}
}

func (s *Synthesizer) logger() logging.Logger {
	if s.Logger == nil {
		return logging.NewNullLogger()
	}
	return s.Logger
}

func entryKey(p string) string {
	return strings.ToLower(audiofile.NormalizeArchivePath(p))
}
