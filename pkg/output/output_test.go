package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/audiopatch/pkg/models"
)

var (
	base  = models.NewBaseSource("/data")
	modA  = &models.Source{Name: "ModA", Priority: 0}
	modB  = &models.Source{Name: "ModB", Priority: 1}
	patch = models.NewPatchSource("Audio Patch", "/mods/Audio Patch")
)

func loose(src *models.Source, key string) *models.Variant {
	return models.NewLooseVariant(src, "/"+src.Name+"/"+key+".wav", key)
}

func packed(src *models.Source, key string) *models.Variant {
	return models.NewArchiveVariant(src, key+".xwm", key, "/"+src.Name+"/"+src.Name+".bsa")
}

func fixture() (models.ConflictMap, models.WinnerMap) {
	conflicts := models.ConflictMap{
		"sound/fx/hit": {loose(modA, "sound/fx/hit"), packed(modB, "sound/fx/hit")},
		"music/town":   {loose(base, "music/town"), loose(modA, "music/town")},
		"sound/step":   {loose(base, "sound/step"), loose(patch, "sound/step")},
	}
	winners := models.WinnerMap{"sound/fx/hit": conflicts["sound/fx/hit"][0]}
	return conflicts, winners
}

func scanReport() *models.ScanReport {
	return &models.ScanReport{
		Duration: 1500 * time.Millisecond,
		Stats: models.ScanStatistics{
			SourcesScanned:    4,
			LooseFilesScanned: 5,
			ArchivesScanned:   1,
			EntriesScanned:    1,
			KeysSeen:          3,
			Conflicts:         3,
		},
		Errors: []models.ScanError{{Source: "ModB", Path: "broken.bsa", Error: "bad magic"}},
		Status: models.StatusPartial,
	}
}

func TestNew(t *testing.T) {
	f, err := New("", nil)
	require.NoError(t, err)
	assert.Equal(t, "human", f.Name())

	f, err = New("json", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name())

	_, err = New("xml", nil)
	assert.Error(t, err)
}

func TestHumanFormatterScan(t *testing.T) {
	conflicts, winners := fixture()
	var buf bytes.Buffer

	f := NewHumanFormatter(&buf)
	require.NoError(t, f.Scan(scanReport(), conflicts, conflicts.Keys(), winners))

	out := buf.String()
	assert.Contains(t, out, "Scan completed in 1.5s")
	assert.Contains(t, out, "Conflicts (3 shown)")
	assert.Contains(t, out, "sound/fx/hit")
	assert.Contains(t, out, "winner: ModA")
	assert.Contains(t, out, "winner: Audio Patch")
	assert.Contains(t, out, "broken.bsa: bad magic")
	assert.Contains(t, out, "partial")
}

func TestHumanFormatterConflict(t *testing.T) {
	conflicts, _ := fixture()
	list := conflicts["music/town"]
	list[0].SetDuration(65)
	var buf bytes.Buffer

	require.NoError(t, NewHumanFormatter(&buf).Conflict("music/town", list, list[1]))

	out := buf.String()
	assert.Contains(t, out, "Base game overridden")
	assert.Contains(t, out, "Base")
	assert.Contains(t, out, "1:05")
	assert.Contains(t, out, "Loose file")
	assert.Equal(t, 1, strings.Count(out, "★"))
}

func TestHumanFormatterSynthesis(t *testing.T) {
	var buf bytes.Buffer
	report := &models.SynthesisReport{
		OutputPath:  "/mods/Patch",
		ArchivePath: "/mods/Patch/Patch.bsa",
		Packed:      true,
		Winners:     3,
		Extracted:   2,
		LooseCopied: 1,
		Status:      models.StatusSuccess,
	}

	require.NoError(t, NewHumanFormatter(&buf).Synthesis(report))
	out := buf.String()
	assert.Contains(t, out, "/mods/Patch/Patch.bsa")
	assert.NotContains(t, out, "Staged files kept")

	buf.Reset()
	require.NoError(t, NewHumanFormatter(&buf).Error(errors.New("boom")))
	assert.Contains(t, buf.String(), "boom")
}

func TestJSONFormatter(t *testing.T) {
	conflicts, winners := fixture()
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.Scan(scanReport(), conflicts, []string{"sound/fx/hit"}, winners))
	require.NoError(t, f.Message("done"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var event struct {
		Type string       `json:"type"`
		Data JSONScanData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "scan", event.Type)
	assert.Equal(t, "partial", event.Data.Status)
	assert.Equal(t, int64(1500), event.Data.DurationMs)
	require.Len(t, event.Data.Conflicts, 1)

	c := event.Data.Conflicts[0]
	assert.True(t, c.Explicit)
	assert.False(t, c.Safe)
	require.Len(t, c.Variants, 2)
	assert.True(t, c.Variants[0].Winner)
	assert.Equal(t, "/ModB/ModB.bsa", c.Variants[1].Archive)
	require.Len(t, event.Data.Errors, 1)
}

func TestClassify(t *testing.T) {
	conflicts, _ := fixture()
	assert.Equal(t, CategoryMods, Classify(conflicts["sound/fx/hit"]))
	assert.Equal(t, CategoryBaseGame, Classify(conflicts["music/town"]))
	assert.Equal(t, CategoryPatched, Classify(conflicts["sound/step"]))
}

func TestWriteConflictReport(t *testing.T) {
	conflicts, winners := fixture()
	dir := t.TempDir()

	t.Run("EmptyCreatesNothing", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, WriteConflictReport(path, "human", conflicts, nil, winners))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Human", func(t *testing.T) {
		path := filepath.Join(dir, "report.txt")
		require.NoError(t, WriteConflictReport(path, "human", conflicts, conflicts.Keys(), winners))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "Total Conflicts: 3")
		assert.Contains(t, out, "Mod Conflicts (1)")
		assert.Contains(t, out, "Base Game Overrides (1)")
		assert.Contains(t, out, "Covered by the Generated Patch (1)")
		assert.Less(t, strings.Index(out, "Mod Conflicts"), strings.Index(out, "Base Game Overrides"))
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "report.json")
		require.NoError(t, WriteConflictReport(path, "json", conflicts, conflicts.Keys(), winners))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var out struct {
			TotalCount int                           `json:"total_count"`
			Conflicts  map[string][]JSONConflictData `json:"conflicts"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, 3, out.TotalCount)
		require.Len(t, out.Conflicts["mods"], 1)
		assert.True(t, out.Conflicts["mods"][0].Explicit)
		assert.Len(t, out.Conflicts["patched"], 1)
	})
}

func TestProgressBarDisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf, "Generating", true)

	assert.False(t, p.Enabled())
	p.Update(1, 2)
	p.Finish()
	assert.Empty(t, buf.String())
	assert.False(t, IsTerminal(&buf))
}
