package models

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Variant is one concrete loose file or archive entry that can satisfy a conflict key
type Variant struct {
	// Source is the content source the variant belongs to
	Source *Source

	// Key is the canonical conflict key
	Key string

	// OriginPath is the absolute file path, or the in-archive path when FromArchive
	OriginPath string

	// FromArchive reports whether the variant lives inside an archive container
	FromArchive bool

	// ArchivePath is the container path (empty for loose files)
	ArchivePath string

	// Duration in seconds, nil until probed
	Duration *float64

	// IsWinner and IsPlaying are presentation state, not identity
	IsWinner  bool
	IsPlaying bool
}

// NewLooseVariant creates a variant for a loose file
func NewLooseVariant(source *Source, path, key string) *Variant {
	return &Variant{
		Source:     source,
		Key:        key,
		OriginPath: path,
	}
}

// NewArchiveVariant creates a variant for an archive entry
func NewArchiveVariant(source *Source, entryPath, key, archivePath string) *Variant {
	return &Variant{
		Source:      source,
		Key:         key,
		OriginPath:  entryPath,
		FromArchive: true,
		ArchivePath: archivePath,
	}
}

// Identity returns the (source, origin, archive) identity of the variant
func (v *Variant) Identity() string {
	name := ""
	if v.Source != nil {
		name = strings.ToLower(v.Source.Name)
	}
	return name + "|" + strings.ToLower(v.ArchivePath) + "|" + strings.ToLower(v.OriginPath)
}

// Priority returns the priority of the owning source
func (v *Variant) Priority() int {
	if v.Source == nil {
		return 0
	}
	return v.Source.Priority
}

// SourceName returns the name of the owning source
func (v *Variant) SourceName() string {
	if v.Source == nil {
		return ""
	}
	return v.Source.Name
}

// Extension returns the origin extension, ".wav" when missing
func (v *Variant) Extension() string {
	p := strings.ReplaceAll(v.OriginPath, "\\", "/")
	base := p[strings.LastIndex(p, "/")+1:]
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 {
		return base[i:]
	}
	return ".wav"
}

// SourceDescription describes where the variant is stored
func (v *Variant) SourceDescription() string {
	if v.FromArchive {
		return "Archive: " + filepath.Base(v.ArchivePath)
	}
	return "Loose file"
}

// HasDuration reports whether a duration has been probed
func (v *Variant) HasDuration() bool {
	return v.Duration != nil
}

// SetDuration records a probed duration
func (v *Variant) SetDuration(seconds float64) {
	d := seconds
	v.Duration = &d
}

// DurationDisplay formats the duration as m:ss or h:mm:ss, empty when unknown
func (v *Variant) DurationDisplay() string {
	if v.Duration == nil {
		return ""
	}

	total := int(math.Round(*v.Duration))
	if total < 1 {
		total = 1
	}

	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WinnerMarker returns a star for winning variants
func (v *Variant) WinnerMarker() string {
	if v.IsWinner {
		return "★"
	}
	return ""
}
