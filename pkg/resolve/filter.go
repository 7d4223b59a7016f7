package resolve

import (
	"strings"

	"github.com/sdejongh/audiopatch/pkg/models"
)

// Filter selects which conflicts are displayed. A zero Filter shows
// everything except vanilla-only conflicts.
type Filter struct {
	// Search is a case-insensitive substring of the key
	Search string

	// SafeMode keeps only conflicts involving the base game and another source
	SafeMode bool

	// ShowVanilla keeps conflicts between the base game and a single mod
	ShowVanilla bool

	// Source keeps conflicts with at least one variant from this source
	Source string
}

// Match reports whether the conflict for key passes every predicate
func (f Filter) Match(key string, variants []*models.Variant) bool {
	if len(variants) == 0 {
		return false
	}

	if search := strings.TrimSpace(f.Search); search != "" &&
		!strings.Contains(strings.ToLower(key), strings.ToLower(search)) {
		return false
	}

	if f.SafeMode && !IsSafe(variants) {
		return false
	}

	if !f.ShowVanilla && IsVanillaOnly(variants) {
		return false
	}

	if f.Source != "" && !hasSource(variants, f.Source) {
		return false
	}

	return true
}

// FilterKeys returns the sorted keys of conflicts matching f
func FilterKeys(conflicts models.ConflictMap, f Filter) []string {
	var keys []string
	for _, key := range conflicts.Keys() {
		if f.Match(key, conflicts[key]) {
			keys = append(keys, key)
		}
	}
	return keys
}

func hasSource(variants []*models.Variant, name string) bool {
	for _, v := range variants {
		if v.Source.HasName(name) {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.ToLower(name)
}
