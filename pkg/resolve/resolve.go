// Package resolve selects winning variants for conflict keys and
// classifies conflicts for filtering.
package resolve

import (
	"errors"
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/sdejongh/audiopatch/pkg/models"
)

// ErrArchiveWinner is returned when a loose file location is requested for an archive variant
var ErrArchiveWinner = errors.New("winner is inside an archive, not a loose file")

// DefaultWinner returns the variant with the highest source priority.
// Ties go to the variant encountered last.
func DefaultWinner(variants []*models.Variant) *models.Variant {
	var best *models.Variant
	for _, v := range variants {
		if v == nil || v.Source == nil {
			continue
		}
		if best == nil || v.Priority() >= best.Priority() {
			best = v
		}
	}
	return best
}

// EffectiveWinner returns the explicit winner for key, or the default winner
func EffectiveWinner(conflicts models.ConflictMap, winners models.WinnerMap, key string) *models.Variant {
	if w, ok := winners[key]; ok && w != nil {
		return w
	}
	return DefaultWinner(conflicts[key])
}

// EffectiveWinners resolves a winner for every key, explicit or default
func EffectiveWinners(conflicts models.ConflictMap, winners models.WinnerMap, keys []string) models.WinnerMap {
	out := make(models.WinnerMap, len(keys))
	for _, key := range keys {
		if w := EffectiveWinner(conflicts, winners, key); w != nil {
			out[key] = w
		}
	}
	return out
}

// InvolvesBase reports whether any variant comes from the base game
func InvolvesBase(variants []*models.Variant) bool {
	for _, v := range variants {
		if v.Source.IsBase() {
			return true
		}
	}
	return false
}

// InvolvesPatch reports whether any variant comes from the generated patch
func InvolvesPatch(variants []*models.Variant) bool {
	for _, v := range variants {
		if v.Source != nil && v.Source.IsPatch {
			return true
		}
	}
	return false
}

// NonBaseSources returns the distinct lower-cased names of non-base sources
func NonBaseSources(variants []*models.Variant) mapset.Set[string] {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, v := range variants {
		if v.Source != nil && !v.Source.IsBase() {
			names.Add(normalizeName(v.SourceName()))
		}
	}
	return names
}

// IsSafe reports whether a conflict pits the base game against at least one other source
func IsSafe(variants []*models.Variant) bool {
	return InvolvesBase(variants) && NonBaseSources(variants).Cardinality() > 0
}

// IsVanillaOnly reports whether a conflict is merely base game against a
// single mod, with no generated patch involved
func IsVanillaOnly(variants []*models.Variant) bool {
	return InvolvesBase(variants) &&
		NonBaseSources(variants).Cardinality() <= 1 &&
		!InvolvesPatch(variants)
}

// AutoSelectPatchWinners installs the generated patch's variant as winner
// wherever the patch takes part in a conflict, preferring its loose file
// over an archive entry. It returns the number of winners installed.
func AutoSelectPatchWinners(conflicts models.ConflictMap, winners models.WinnerMap) int {
	n := 0
	for key, list := range conflicts {
		var pick *models.Variant
		for _, v := range list {
			if v.Source == nil || !v.Source.IsPatch {
				continue
			}
			if pick == nil || (pick.FromArchive && !v.FromArchive) {
				pick = v
			}
		}
		if pick != nil {
			winners[key] = pick
			n++
		}
	}
	return n
}

// NonSafeWinners returns the sorted keys whose explicit winner belongs to a
// conflict that safe mode would hide
func NonSafeWinners(conflicts models.ConflictMap, winners models.WinnerMap) []string {
	var keys []string
	for _, key := range winners.Keys() {
		if !IsSafe(conflicts[key]) {
			keys = append(keys, key)
		}
	}
	return keys
}

// LooseLocation returns the file path of the effective winner for key,
// which must be a loose file that still exists
func LooseLocation(conflicts models.ConflictMap, winners models.WinnerMap, key string) (string, error) {
	w := EffectiveWinner(conflicts, winners, key)
	if w == nil {
		return "", fmt.Errorf("no conflict for key %q", key)
	}
	if w.FromArchive {
		return "", fmt.Errorf("%s: %w (%s)", key, ErrArchiveWinner, w.SourceDescription())
	}
	if _, err := os.Stat(w.OriginPath); err != nil {
		return "", fmt.Errorf("winner file not found: %w", err)
	}
	return w.OriginPath, nil
}
