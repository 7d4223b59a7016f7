package models

import (
	"math"
	"strconv"
	"strings"
)

// BaseSourceName is the display name of the synthetic base-game source
const BaseSourceName = "Skyrim (Base Game)"

const (
	// BasePriority is reserved for the base-game source (always lowest)
	BasePriority = math.MinInt
	// PatchPriority is reserved for the generated patch source (always highest)
	PatchPriority = math.MaxInt
)

const (
	// StagingInfix joins the patch folder name and the id of a staging directory
	StagingInfix = "_staging_"
	// BackupInfix joins the patch folder name and the id of a backup directory
	BackupInfix = "_backup_"
)

// IsPatchWorkDir reports whether dir is a staging or backup directory
// a build of the patch folder named folder can leave behind
func IsPatchWorkDir(dir, folder string) bool {
	if strings.TrimSpace(folder) == "" {
		return false
	}
	dir, folder = strings.ToLower(dir), strings.ToLower(folder)
	return strings.HasPrefix(dir, folder+StagingInfix) || strings.HasPrefix(dir, folder+BackupInfix)
}

// Source is a prioritized container of audio variants: a mod directory,
// the base-game data directory, or a previously generated patch
type Source struct {
	// Name identifies the source (compared case-insensitively)
	Name string

	// RootPath is the directory scanned for loose files and archives
	RootPath string

	// Enabled reports whether the catalog enabled the source
	Enabled bool

	// Priority orders sources; lower values are scanned first and lose ties
	Priority int

	// IsPatch marks the generated patch source
	IsPatch bool
}

// NewBaseSource creates the synthetic base-game source rooted at dataPath
func NewBaseSource(dataPath string) *Source {
	return &Source{
		Name:     BaseSourceName,
		RootPath: dataPath,
		Enabled:  true,
		Priority: BasePriority,
	}
}

// NewPatchSource creates the synthetic source for an existing generated patch
func NewPatchSource(name, dir string) *Source {
	return &Source{
		Name:     name,
		RootPath: dir,
		Enabled:  true,
		Priority: PatchPriority,
		IsPatch:  true,
	}
}

// IsBase reports whether s is the base-game source
func (s *Source) IsBase() bool {
	return s != nil && strings.EqualFold(s.Name, BaseSourceName)
}

// HasName reports whether s is identified by name
func (s *Source) HasName(name string) bool {
	return s != nil && strings.EqualFold(s.Name, name)
}

// DisplayPriority returns "Base", "Patch" or the numeric priority
func (s *Source) DisplayPriority() string {
	switch {
	case s.IsBase():
		return "Base"
	case s.IsPatch:
		return "Patch"
	default:
		return strconv.Itoa(s.Priority)
	}
}
