// Package selection persists explicit winner choices between runs
package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
)

const (
	fileVersion = 1

	// DefaultFileName is the selection file name inside the config directory
	DefaultFileName = "selection.yaml"
)

// Selection is the saved set of explicit winners
type Selection struct {
	// Version for file format compatibility
	Version int `yaml:"version"`

	// SavedAt is when the selection was last written
	SavedAt time.Time `yaml:"saved_at,omitempty"`

	Winners []Choice `yaml:"winners"`
}

// Choice identifies the winning variant of one key
type Choice struct {
	Key     string `yaml:"key"`
	Source  string `yaml:"source"`
	Origin  string `yaml:"origin"`
	Archive string `yaml:"archive,omitempty"`
}

// New creates an empty selection
func New() *Selection {
	return &Selection{Version: fileVersion}
}

// FromWinners records every explicit winner, ordered by key
func FromWinners(winners models.WinnerMap) *Selection {
	s := New()
	for _, key := range winners.Keys() {
		v := winners[key]
		if v == nil {
			continue
		}
		s.Winners = append(s.Winners, Choice{
			Key:     key,
			Source:  v.SourceName(),
			Origin:  v.OriginPath,
			Archive: v.ArchivePath,
		})
	}
	return s
}

// Load reads a selection file.
// Returns an empty selection if the file doesn't exist.
func Load(path string) (*Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read selection file: %w", err)
	}

	var s Selection
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse selection file: %w", err)
	}

	if s.Version > fileVersion {
		return nil, fmt.Errorf("selection file version %d is newer than supported version %d", s.Version, fileVersion)
	}
	if s.Version == 0 {
		s.Version = fileVersion
	}

	return &s, nil
}

// Save writes the selection to path atomically
func (s *Selection) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create selection directory: %w", err)
	}

	s.SavedAt = time.Now().UTC().Truncate(time.Second)
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}

	// Write atomically using temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write selection file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize selection file: %w", err)
	}

	return nil
}

// Resolve maps each choice to the matching variant of conflicts.
// Choices whose key or variant no longer exists are returned as unresolved.
func (s *Selection) Resolve(conflicts models.ConflictMap) (models.WinnerMap, []Choice) {
	winners := make(models.WinnerMap)
	var unresolved []Choice

	for _, c := range s.Winners {
		v := c.find(conflicts[c.Key])
		if v == nil {
			unresolved = append(unresolved, c)
			continue
		}
		winners[c.Key] = v
	}

	return winners, unresolved
}

// Apply sets every resolvable choice as a winner in session and returns
// how many were applied along with the choices that could not be
func (s *Selection) Apply(session *resolve.Session) (int, []Choice) {
	winners, unresolved := s.Resolve(session.Conflicts)

	applied := 0
	for _, key := range winners.Keys() {
		if _, err := session.SetWinner(key, winners[key]); err != nil {
			unresolved = append(unresolved, Choice{Key: key})
			continue
		}
		applied++
	}
	return applied, unresolved
}

func (c Choice) find(list []*models.Variant) *models.Variant {
	for _, v := range list {
		if strings.EqualFold(v.SourceName(), c.Source) &&
			strings.EqualFold(v.OriginPath, c.Origin) &&
			strings.EqualFold(v.ArchivePath, c.Archive) {
			return v
		}
	}
	return nil
}
