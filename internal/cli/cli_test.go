package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/audiopatch/pkg/config"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/resolve"
	"github.com/sdejongh/audiopatch/pkg/synth"
)

type fixture struct {
	dir      string
	modsRoot string
	config   string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		modsRoot: filepath.Join(dir, "mods"),
		config:   filepath.Join(dir, "config.yaml"),
	}

	writeFile(t, filepath.Join(dir, "Data", "sound", "fx", "hit.wav"), "base")
	writeFile(t, filepath.Join(f.modsRoot, "ModA", "sound", "fx", "hit.wav"), "a")
	writeFile(t, filepath.Join(f.modsRoot, "ModB", "sound", "fx", "hit.wav"), "b")
	writeFile(t, filepath.Join(f.modsRoot, "ModA", "music", "town.mp3"), "town a")
	writeFile(t, filepath.Join(f.modsRoot, "ModB", "music", "town.mp3"), "town b")

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "Data")
	cfg.Paths.ModsRoot = f.modsRoot
	cfg.Paths.Selection = filepath.Join(dir, "selection.yaml")
	cfg.Media.CacheDir = filepath.Join(dir, "cache")
	cfg.Logging.Enabled = false
	cfg.Output.Progress = false
	require.NoError(t, config.SaveToFile(cfg, f.config))

	return f
}

// execute runs the command line against a fresh command tree
func (f *fixture) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	globalFlags = GlobalFlags{}

	root := &cobra.Command{Use: "audiopatch", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(
		NewScanCommand(),
		NewShowCommand(),
		NewChooseCommand(),
		NewLocateCommand(),
		NewExtractCommand(),
		NewGenerateCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--config", f.config}, args...))

	err := root.Execute()
	return buf.String(), err
}

func TestScanJSON(t *testing.T) {
	f := newFixture(t)

	out, err := f.execute(t, "-o", "json", "scan")
	require.NoError(t, err)

	var event struct {
		Type string `json:"type"`
		Data struct {
			Status    string `json:"status"`
			Conflicts []struct {
				Key string `json:"key"`
			} `json:"conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.Split(out, "\n")[0]), &event))
	assert.Equal(t, "scan", event.Type)
	assert.Equal(t, "success", event.Data.Status)
	require.Len(t, event.Data.Conflicts, 2)
	assert.Equal(t, "music/town", event.Data.Conflicts[0].Key)
	assert.Equal(t, "sound/fx/hit", event.Data.Conflicts[1].Key)
}

func TestScanFiltersAndReport(t *testing.T) {
	f := newFixture(t)
	report := filepath.Join(f.dir, "conflicts.txt")

	out, err := f.execute(t, "scan", "--safe", "--report", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Conflicts (1 shown)")
	assert.Contains(t, out, "sound/fx/hit")
	assert.NotContains(t, out, "music/town")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Base Game Overrides (1)")
}

func TestShowUnknownKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "show", "sound/none")
	assert.ErrorIs(t, err, resolve.ErrUnknownKey)
}

func TestShowAcceptsFilePath(t *testing.T) {
	f := newFixture(t)

	out, err := f.execute(t, "show", `Sound\FX\Hit.wav`)
	require.NoError(t, err)
	assert.Contains(t, out, "sound/fx/hit")
	assert.Contains(t, out, "ModB")
}

func TestChooseGenerateLocate(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "choose", "sound/fx/hit", "moda")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.dir, "selection.yaml"))

	out, err := f.execute(t, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Patch generated")

	written := filepath.Join(f.modsRoot, synth.DefaultFolderName, "sound", "fx", "hit.wav")
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	// The saved choice survives the rescan that now includes the generated patch
	out, err = f.execute(t, "locate", "sound/fx/hit")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("ModA", "sound", "fx", "hit.wav"))
}

func TestChooseClear(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "choose", "sound/fx/hit", "ModA")
	require.NoError(t, err)
	_, err = f.execute(t, "choose", "sound/fx/hit", "--clear")
	require.NoError(t, err)

	_, err = f.execute(t, "generate")
	assert.ErrorIs(t, err, synth.ErrNothingToGenerate)

	_, err = f.execute(t, "choose", "sound/fx/hit", "Missing")
	assert.Error(t, err)
}

func TestGenerateSafeModeRequiresConfirmation(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "choose", "music/town", "ModA")
	require.NoError(t, err)

	_, err = f.execute(t, "generate", "--safe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "music/town.mp3")
	assert.Contains(t, err.Error(), "--yes")
	assert.NoDirExists(t, filepath.Join(f.modsRoot, synth.DefaultFolderName))

	_, err = f.execute(t, "generate", "--safe", "--yes")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.modsRoot, synth.DefaultFolderName, "music", "town.mp3"))
}

func TestGeneratePackWithoutPacker(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "choose", "sound/fx/hit", "ModA")
	require.NoError(t, err)

	_, err = f.execute(t, "generate", "--pack", "--packer", filepath.Join(f.dir, "missing.exe"))
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "patch.packer_path", verr.Field)
}

func TestExtractToDest(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(f.dir, "out")

	out, err := f.execute(t, "extract", "sound/fx/hit", "--source", "ModB", "--dest", dest)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dest, "hit.wav"))

	data, err := os.ReadFile(filepath.Join(dest, "hit.wav"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestLocateNoConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, "locate", "sound/none")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.config))

	out, err := f.execute(t, "config", "init", "--data-dir", "/games/Data")
	require.NoError(t, err)
	assert.Contains(t, out, f.config)

	cfg, err := config.LoadFromFile(f.config)
	require.NoError(t, err)
	assert.Equal(t, "/games/Data", cfg.Paths.DataDir)

	out, err = f.execute(t, "--log-level", "warn", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "data_dir: /games/Data")
	assert.Contains(t, out, "level: warn")
}

func TestVersionShort(t *testing.T) {
	f := newFixture(t)

	out, err := f.execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError(models.StatusSuccess))

	err := statusError(models.StatusPartial)
	var exit *ExitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.Code())
}
