package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/sdejongh/audiopatch/internal/platform"
	"github.com/sdejongh/audiopatch/pkg/catalog"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/synth"
)

// AppName is the directory name used below the XDG base directories
const AppName = "audiopatch"

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Patch   PatchConfig   `yaml:"patch"`
	Catalog CatalogConfig `yaml:"catalog"`
	Filters FiltersConfig `yaml:"filters"`
	Media   MediaConfig   `yaml:"media"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Exclude []string      `yaml:"exclude"`
}

// PathsConfig locates the game installation
type PathsConfig struct {
	DataDir    string `yaml:"data_dir"`    // Base game Data directory
	ModsRoot   string `yaml:"mods_root"`   // One directory per mod
	Manifest   string `yaml:"manifest"`    // modlist.txt (empty = all mods enabled)
	OutputRoot string `yaml:"output_root"` // Receives the patch folder (empty = mods_root)
	Selection  string `yaml:"selection"`   // Saved winner choices
}

// PatchConfig holds patch generation settings
type PatchConfig struct {
	FolderName       string   `yaml:"folder_name"`
	Pack             bool     `yaml:"pack"`
	PackerPath       string   `yaml:"packer_path"`
	PackerArgs       []string `yaml:"packer_args"`
	ArchiveExtension string   `yaml:"archive_extension"`
}

// CatalogConfig holds mod catalog settings
type CatalogConfig struct {
	Policy string `yaml:"policy"` // "strict" or "fallback"
}

// FiltersConfig holds the default conflict filters
type FiltersConfig struct {
	SafeMode    bool `yaml:"safe_mode"`
	ShowVanilla bool `yaml:"show_vanilla"`
}

// MediaConfig holds ffmpeg and temporary file settings
type MediaConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"` // Empty = next to the executable, then PATH
	CacheDir   string `yaml:"cache_dir"`
	Durations  bool   `yaml:"durations"` // Probe durations after a scan
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format     string `yaml:"format"`      // "human" or "json"
	Progress   bool   `yaml:"progress"`    // Show progress bars
	Quiet      bool   `yaml:"quiet"`       // Suppress non-error output
	ReportFile string `yaml:"report_file"` // Conflict report destination (empty = none)
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Selection: filepath.Join(xdg.ConfigHome, AppName, "selection.yaml"),
		},
		Patch: PatchConfig{
			FolderName:       synth.DefaultFolderName,
			Pack:             false,
			PackerArgs:       append([]string(nil), synth.DefaultPackArgs...),
			ArchiveExtension: ".bsa",
		},
		Catalog: CatalogConfig{
			Policy: string(catalog.PolicyFallback),
		},
		Filters: FiltersConfig{
			SafeMode:    false,
			ShowVanilla: false,
		},
		Media: MediaConfig{
			CacheDir:  filepath.Join(xdg.CacheHome, AppName),
			Durations: false,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Format:     "text",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	paths := []struct {
		field, value string
	}{
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.mods_root", c.Paths.ModsRoot},
		{"paths.manifest", c.Paths.Manifest},
		{"paths.output_root", c.Paths.OutputRoot},
		{"paths.selection", c.Paths.Selection},
		{"patch.packer_path", c.Patch.PackerPath},
		{"media.ffmpeg_path", c.Media.FFmpegPath},
		{"media.cache_dir", c.Media.CacheDir},
	}
	for _, p := range paths {
		if p.value == "" {
			continue
		}
		if err := platform.ValidatePath(p.value); err != nil {
			return &models.ValidationError{Field: p.field, Message: err.Error()}
		}
	}

	if strings.TrimSpace(c.Patch.FolderName) == "" || strings.ContainsAny(c.Patch.FolderName, `/\`) {
		return &models.ValidationError{
			Field:   "patch.folder_name",
			Message: "must be a plain directory name",
		}
	}

	validExtensions := map[string]bool{".bsa": true, ".ba2": true}
	if !validExtensions[strings.ToLower(c.Patch.ArchiveExtension)] {
		return &models.ValidationError{
			Field:   "patch.archive_extension",
			Message: "must be '.bsa' or '.ba2'",
		}
	}

	if c.Patch.Pack && strings.TrimSpace(c.Patch.PackerPath) == "" {
		return &models.ValidationError{
			Field:   "patch.packer_path",
			Message: "is required when pack is enabled",
		}
	}

	if _, err := catalog.ParsePolicy(c.Catalog.Policy); err != nil {
		return &models.ValidationError{
			Field:   "catalog.policy",
			Message: "must be 'strict' or 'fallback'",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings must not be negative",
		}
	}

	return nil
}

// Layout returns the catalog layout described by the paths section
func (c *Config) Layout(manifest *catalog.Manifest) (catalog.Layout, error) {
	policy, err := catalog.ParsePolicy(c.Catalog.Policy)
	if err != nil {
		return catalog.Layout{}, err
	}
	return catalog.Layout{
		DataDir:     c.Paths.DataDir,
		ModsRoot:    c.Paths.ModsRoot,
		OutputRoot:  c.Paths.OutputRoot,
		PatchFolder: c.Patch.FolderName,
		Manifest:    manifest,
		Policy:      policy,
	}, nil
}
