// Package scan walks content sources and groups their audio variants by
// conflict key.
package scan

import (
	"context"
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

// VanillaArchivePrefixes are the file name prefixes of archives shipped with the base game
var VanillaArchivePrefixes = []string{"Skyrim - ", "Update", "Dawnguard", "Dragonborn", "HearthFires", "cc"}

// IsVanillaArchive reports whether an archive file name looks like base game content
func IsVanillaArchive(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, prefix := range VanillaArchivePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Scanner builds a ConflictMap from an ordered list of sources
type Scanner struct {
	opener  archive.Opener
	overlay platform.OverlayDetector
	exclude []string
	logger  logging.Logger
}

// Option configures a Scanner
type Option func(*Scanner)

// WithOpener sets how archive containers are opened
func WithOpener(opener archive.Opener) Option {
	return func(s *Scanner) { s.opener = opener }
}

// WithOverlayDetector replaces the virtual filesystem detection
func WithOverlayDetector(detect platform.OverlayDetector) Option {
	return func(s *Scanner) { s.overlay = detect }
}

// WithExclude skips loose files and archives matching the glob patterns
func WithExclude(patterns []string) Option {
	return func(s *Scanner) { s.exclude = patterns }
}

// WithLogger sets the logger for skipped sources and archives
func WithLogger(logger logging.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a scanner reading archives from disk and detecting the MO2 overlay
func New(opts ...Option) *Scanner {
	s := &Scanner{
		opener:  archive.DefaultOpener,
		overlay: platform.OverlayActive,
		logger:  logging.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every source in ascending priority order and returns the keys
// contributed by at least two variants. Failures of a single source or
// archive are recorded in the report and never abort the scan; only
// context cancellation does.
func (s *Scanner) Scan(ctx context.Context, sources []*models.Source) (models.ConflictMap, *models.ScanReport, error) {
	report := &models.ScanReport{
		StartTime: time.Now(),
		Status:    models.StatusSuccess,
	}

	ordered := append([]*models.Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	overlay := s.overlay()
	buckets := make(map[string][]*models.Variant)

	for _, src := range ordered {
		if err := ctx.Err(); err != nil {
			report.Status = models.StatusCancelled
			report.Finish()
			return nil, report, err
		}

		vanillaOnly := overlay && src.IsBase()
		if err := s.scanSource(ctx, src, vanillaOnly, buckets, report); err != nil {
			report.Status = models.StatusCancelled
			report.Finish()
			return nil, report, err
		}
	}

	conflicts := make(models.ConflictMap)
	for key, list := range buckets {
		if len(list) >= 2 {
			conflicts[key] = list
		}
	}
	conflicts.SortByPriority()

	report.Stats.KeysSeen = len(buckets)
	report.Stats.Conflicts = len(conflicts)
	if len(report.Errors) > 0 {
		report.Status = models.StatusPartial
	}
	report.Finish()

	s.logger.Info(ctx, "scan complete", logging.Fields{
		"sources":   report.Stats.SourcesScanned,
		"keys":      report.Stats.KeysSeen,
		"conflicts": report.Stats.Conflicts,
		"errors":    len(report.Errors),
	})

	return conflicts, report, nil
}

// scanSource adds the loose files and archive entries of one source.
// The returned error is only ever a context error.
func (s *Scanner) scanSource(ctx context.Context, src *models.Source, vanillaOnly bool, buckets map[string][]*models.Variant, report *models.ScanReport) error {
	log := s.logger.WithFields(logging.Fields{"source": src.Name})

	local, err := storage.NewLocal(src.RootPath)
	if err != nil {
		log.Warn(ctx, "skipping unreadable source", logging.Fields{"error": err.Error()})
		recordError(report, src, src.RootPath, err)
		return nil
	}
	defer local.Close()
	report.Stats.SourcesScanned++

	if vanillaOnly {
		// The overlay already merges loose mod files into the data directory
		report.Stats.LooseSkipped = true
		log.Debug(ctx, "overlay active, scanning vanilla archives only", nil)
	} else if err := s.scanLoose(ctx, local, src, buckets, report); err != nil {
		return err
	}

	return s.scanArchives(ctx, local, src, vanillaOnly, buckets, report)
}

func (s *Scanner) scanLoose(ctx context.Context, local *storage.Local, src *models.Source, buckets map[string][]*models.Variant, report *models.ScanReport) error {
	files, err := local.List(ctx, "")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn(ctx, "failed to list loose files", logging.Fields{"source": src.Name, "error": err.Error()})
		recordError(report, src, src.RootPath, err)
		return nil
	}

	for _, f := range files {
		if !audiofile.IsAudioFile(f.RelativePath) || shouldExclude(f.RelativePath, s.exclude) {
			continue
		}
		key, ok := audiofile.KeyFromRelative(f.RelativePath)
		if !ok {
			continue
		}

		buckets[key] = append(buckets[key], models.NewLooseVariant(src, f.Path, key))
		report.Stats.LooseFilesScanned++
	}

	return nil
}

func (s *Scanner) scanArchives(ctx context.Context, local *storage.Local, src *models.Source, vanillaOnly bool, buckets map[string][]*models.Variant, report *models.ScanReport) error {
	containers, err := local.ListTop(ctx, func(name string) bool {
		if !audiofile.IsArchiveFile(name) || shouldExclude(name, s.exclude) {
			return false
		}
		return !vanillaOnly || IsVanillaArchive(name)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		recordError(report, src, src.RootPath, err)
		return nil
	}

	for _, c := range containers {
		entries, err := s.listArchive(ctx, c.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn(ctx, "skipping unreadable archive", logging.Fields{
				"source":  src.Name,
				"archive": filepath.Base(c.Path),
				"error":   err.Error(),
			})
			report.Stats.ArchivesSkipped++
			recordError(report, src, c.Path, err)
			continue
		}
		report.Stats.ArchivesScanned++

		for _, e := range entries {
			if !audiofile.IsAudioFile(e.RelativePath) {
				continue
			}
			key, ok := audiofile.KeyFromRelative(e.RelativePath)
			if !ok {
				continue
			}

			buckets[key] = append(buckets[key], models.NewArchiveVariant(src, e.Path, key, c.Path))
			report.Stats.EntriesScanned++
		}
	}

	return nil
}

func (s *Scanner) listArchive(ctx context.Context, path string) ([]storage.FileInfo, error) {
	r, err := s.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.List(ctx, "")
}

func recordError(report *models.ScanReport, src *models.Source, path string, err error) {
	report.Errors = append(report.Errors, models.ScanError{
		Source:    src.Name,
		Path:      path,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}
