// Package catalog loads the ordered list of content sources from a mods
// root directory and an optional priority manifest.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdejongh/audiopatch/pkg/models"
)

// Policy decides whether directories missing from a non-empty manifest are enabled
type Policy string

const (
	// PolicyStrict enables only directories the manifest lists as enabled
	PolicyStrict Policy = "strict"
	// PolicyFallback behaves like PolicyStrict unless the manifest enables
	// nothing at all, in which case every listed directory is enabled
	PolicyFallback Policy = "fallback"
)

// ParsePolicy converts a configuration value into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyFallback:
		return p, nil
	case "":
		return PolicyFallback, nil
	default:
		return "", fmt.Errorf("unknown catalog policy %q (want strict or fallback)", s)
	}
}

// Entry is one accepted manifest line
type Entry struct {
	Name    string
	Enabled bool
	Index   int
}

// Manifest is a parsed priority manifest
type Manifest struct {
	entries []Entry
	byName  map[string]int
	lines   int
}

// ParseManifest reads a manifest: one source name per line, '+' enabled,
// '-' disabled, no prefix enabled; blank lines and '#' comments are skipped.
// A name listed twice keeps its last line.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{byName: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		enabled := true
		name := line
		switch line[0] {
		case '+':
			name = strings.TrimSpace(line[1:])
		case '-':
			enabled = false
			name = strings.TrimSpace(line[1:])
		}
		if name == "" {
			continue
		}

		e := Entry{Name: name, Enabled: enabled, Index: m.lines}
		m.lines++

		if i, ok := m.byName[strings.ToLower(name)]; ok {
			m.entries[i] = e
			continue
		}
		m.byName[strings.ToLower(name)] = len(m.entries)
		m.entries = append(m.entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return m, nil
}

// LoadManifest parses the manifest at path. A blank path or a missing
// file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return &Manifest{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return ParseManifest(f)
}

// Len returns the number of distinct names in the manifest
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the accepted entries in manifest order
func (m *Manifest) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Lookup finds the entry for name, ignoring case
func (m *Manifest) Lookup(name string) (Entry, bool) {
	if m == nil || m.byName == nil {
		return Entry{}, false
	}
	i, ok := m.byName[strings.ToLower(name)]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// EnabledCount returns how many entries are enabled
func (m *Manifest) EnabledCount() int {
	n := 0
	for _, e := range m.Entries() {
		if e.Enabled {
			n++
		}
	}
	return n
}

// Load builds the catalog of enabled sources found under root, ordered
// by ascending priority. Disabled directories are left out entirely and
// a root that cannot be listed yields an empty catalog.
func Load(root string, manifest *Manifest, policy Policy) []*models.Source {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	fallback := 0
	if manifest != nil {
		fallback = manifest.lines
	}
	anyEnabled := manifest.EnabledCount() > 0

	var sources []*models.Source
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		name := d.Name()

		enabled := true
		var priority int

		if manifest.Len() > 0 {
			entry, listed := manifest.Lookup(name)
			switch {
			case listed && anyEnabled:
				enabled = entry.Enabled
			case listed:
				// Nothing enabled in the manifest
				enabled = policy == PolicyFallback
			default:
				enabled = false
			}

			if listed {
				priority = entry.Index
			} else {
				priority = fallback
				fallback++
			}
		} else {
			priority = fallback
			fallback++
		}

		if !enabled {
			continue
		}

		sources = append(sources, &models.Source{
			Name:     name,
			RootPath: filepath.Join(root, name),
			Enabled:  true,
			Priority: priority,
		})
	}

	SortByPriority(sources)
	return sources
}

// SortByPriority stably orders sources by ascending priority
func SortByPriority(sources []*models.Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
}

// Without returns sources minus the one named name (ignoring case)
func Without(sources []*models.Source, name string) []*models.Source {
	out := make([]*models.Source, 0, len(sources))
	for _, s := range sources {
		if !s.HasName(name) {
			out = append(out, s)
		}
	}
	return out
}

// WithoutWorkDirs drops the staging and backup directories left next to
// the patch folder named folder
func WithoutWorkDirs(sources []*models.Source, folder string) []*models.Source {
	out := make([]*models.Source, 0, len(sources))
	for _, s := range sources {
		if !models.IsPatchWorkDir(s.Name, folder) {
			out = append(out, s)
		}
	}
	return out
}
