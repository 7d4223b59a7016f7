package catalog

import (
	"path/filepath"
	"strings"

	"github.com/sdejongh/audiopatch/internal/platform"
	"github.com/sdejongh/audiopatch/pkg/models"
)

// PatchDisplayName names the source of a previously generated patch
const PatchDisplayName = "Generated Patch"

// Layout describes the directories of one game installation
type Layout struct {
	// DataDir is the base game data directory
	DataDir string

	// ModsRoot holds one directory per mod
	ModsRoot string

	// OutputRoot receives the patch folder, ModsRoot when empty
	OutputRoot string

	// PatchFolder is the name of the generated patch directory
	PatchFolder string

	Manifest *Manifest
	Policy   Policy
}

// Validate checks that the data and mods directories exist
func (l Layout) Validate() error {
	if strings.TrimSpace(l.ModsRoot) == "" || !platform.IsDir(l.ModsRoot) {
		return &models.ValidationError{Field: "paths.mods_root", Message: "must be an existing directory"}
	}
	if strings.TrimSpace(l.DataDir) == "" || !platform.IsDir(l.DataDir) {
		return &models.ValidationError{Field: "paths.data_dir", Message: "must be an existing directory"}
	}
	return nil
}

// Output returns the directory receiving the patch folder
func (l Layout) Output() string {
	if strings.TrimSpace(l.OutputRoot) == "" {
		return l.ModsRoot
	}
	return l.OutputRoot
}

// PatchDir returns the existing patch folder, looked up in the output root
// then in the mods root, or "" when none exists
func (l Layout) PatchDir() string {
	if l.PatchFolder == "" {
		return ""
	}
	for _, root := range []string{l.Output(), l.ModsRoot} {
		candidate := filepath.Join(root, l.PatchFolder)
		if platform.IsDir(candidate) {
			return candidate
		}
	}
	return ""
}

// Sources returns the scan order: the base game, the enabled mods minus
// the patch folder and its build leftovers, then the existing patch when
// there is one
func (l Layout) Sources() ([]*models.Source, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	mods := Load(l.ModsRoot, l.Manifest, l.Policy)
	if l.PatchFolder != "" {
		mods = WithoutWorkDirs(Without(mods, l.PatchFolder), l.PatchFolder)
	}

	sources := make([]*models.Source, 0, len(mods)+2)
	sources = append(sources, models.NewBaseSource(l.DataDir))
	sources = append(sources, mods...)

	if dir := l.PatchDir(); dir != "" {
		sources = append(sources, models.NewPatchSource(PatchDisplayName, dir))
	}
	return sources, nil
}
