package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
)

// Category groups conflicts in the report file
type Category string

const (
	CategoryPatched  Category = "patched"
	CategoryMods     Category = "mods"
	CategoryBaseGame Category = "base_game"
)

var categoryOrder = []Category{CategoryMods, CategoryBaseGame, CategoryPatched}

var categoryLabels = map[Category]string{
	CategoryMods:     "Mod Conflicts",
	CategoryBaseGame: "Base Game Overrides",
	CategoryPatched:  "Covered by the Generated Patch",
}

// Classify returns the report category of a conflict
func Classify(variants []*models.Variant) Category {
	switch {
	case resolve.InvolvesPatch(variants):
		return CategoryPatched
	case resolve.IsSafe(variants):
		return CategoryBaseGame
	default:
		return CategoryMods
	}
}

// WriteConflictReport writes the listed conflicts to a file grouped by
// category. Format can be "human" or "json". No file is created when keys
// is empty.
func WriteConflictReport(path, format string, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error {
	if len(keys) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create conflict report: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeReportJSON(file, conflicts, keys, winners)
	default:
		return writeReportHuman(file, conflicts, keys, winners)
	}
}

func groupKeys(conflicts models.ConflictMap, keys []string) map[Category][]string {
	groups := make(map[Category][]string)
	for _, key := range keys {
		c := Classify(conflicts[key])
		groups[c] = append(groups[c], key)
	}
	return groups
}

func writeReportHuman(w io.Writer, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error {
	fmt.Fprintf(w, "Conflict Report\n")
	fmt.Fprintf(w, "===============\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Total Conflicts: %d\n\n", len(keys))

	groups := groupKeys(conflicts, keys)
	for _, category := range categoryOrder {
		list := groups[category]
		if len(list) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d)", categoryLabels[category], len(list))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, key := range list {
			winner := resolve.EffectiveWinner(conflicts, winners, key)
			fmt.Fprintf(w, "  %s\n", key)
			for _, v := range conflicts[key] {
				marker := " "
				if v == winner {
					marker = "*"
				}
				fmt.Fprintf(w, "   %s %-6s %s (%s)\n", marker, v.Source.DisplayPriority(), v.SourceName(), v.SourceDescription())
			}
			fmt.Fprintf(w, "\n")
		}
	}

	return nil
}

func writeReportJSON(w io.Writer, conflicts models.ConflictMap, keys []string, winners models.WinnerMap) error {
	groups := groupKeys(conflicts, keys)

	out := struct {
		Generated  string                          `json:"generated"`
		TotalCount int                             `json:"total_count"`
		Conflicts  map[Category][]JSONConflictData `json:"conflicts"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		TotalCount: len(keys),
		Conflicts:  make(map[Category][]JSONConflictData),
	}

	for _, category := range categoryOrder {
		for _, key := range groups[category] {
			c := conflictData(key, conflicts[key], resolve.EffectiveWinner(conflicts, winners, key))
			_, c.Explicit = winners[key]
			out.Conflicts[category] = append(out.Conflicts[category], c)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
