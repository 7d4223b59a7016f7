package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/process"
	"github.com/sdejongh/audiopatch/pkg/synth"
)

const patchFolder = "Audio_Patch"

func TestLayoutSources(t *testing.T) {
	mods := makeMods(t, "ModA", "ModB", patchFolder)
	data := t.TempDir()

	l := Layout{
		DataDir:     data,
		ModsRoot:    mods,
		PatchFolder: patchFolder,
		Manifest:    parse(t, "+ModB\n+ModA\n+"+patchFolder+"\n"),
		Policy:      PolicyFallback,
	}

	sources, err := l.Sources()
	require.NoError(t, err)

	assert.Equal(t, []string{models.BaseSourceName, "ModB", "ModA", PatchDisplayName}, names(sources))
	assert.True(t, sources[0].IsBase())
	assert.True(t, sources[3].IsPatch)
	assert.Equal(t, filepath.Join(mods, patchFolder), sources[3].RootPath)
}

func TestLayoutSourcesSkipsBuildLeftovers(t *testing.T) {
	mods := makeMods(t, "ModA", "ModB",
		patchFolder+models.BackupInfix+"0123",
		"audio_patch"+models.StagingInfix+"4567",
		patchFolder+"_extras",
	)
	data := t.TempDir()

	l := Layout{DataDir: data, ModsRoot: mods, PatchFolder: patchFolder, Policy: PolicyFallback}
	sources, err := l.Sources()
	require.NoError(t, err)

	assert.Equal(t, []string{models.BaseSourceName, "Audio_Patch_extras", "ModA", "ModB"}, names(sources))
}

func TestLayoutSourcesAfterFailedPack(t *testing.T) {
	mods := makeMods(t, "ModB")
	src := filepath.Join(mods, "ModB", "sound", "fx", "hit.wav")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("b"), 0644))

	exe := filepath.Join(t.TempDir(), "bsarch.exe")
	require.NoError(t, os.WriteFile(exe, nil, 0644))
	failing := process.RunnerFunc(func(ctx context.Context, exe string, args ...string) (process.Result, error) {
		return process.Result{ExitCode: 1}, nil
	})

	builder := synth.NewBuilder(nil, synth.NewPacker(exe, failing), nil)
	builder.TempDir = t.TempDir()
	winners := models.WinnerMap{"sound/fx/hit": models.NewLooseVariant(&models.Source{Name: "ModB"}, src, "sound/fx/hit")}
	report, err := builder.Build(context.Background(), winners, synth.BuildOptions{OutputRoot: mods, FolderName: patchFolder, Pack: true})
	require.Error(t, err)
	require.DirExists(t, report.StagingPath)

	l := Layout{DataDir: t.TempDir(), ModsRoot: mods, PatchFolder: patchFolder, Policy: PolicyFallback}
	sources, err := l.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{models.BaseSourceName, "ModB"}, names(sources))
}

func TestLayoutPatchDirPrefersOutputRoot(t *testing.T) {
	mods := makeMods(t, patchFolder)
	out := makeMods(t, patchFolder)

	l := Layout{ModsRoot: mods, OutputRoot: out, PatchFolder: patchFolder}
	assert.Equal(t, filepath.Join(out, patchFolder), l.PatchDir())
	assert.Equal(t, out, l.Output())

	require.NoError(t, os.RemoveAll(filepath.Join(out, patchFolder)))
	assert.Equal(t, filepath.Join(mods, patchFolder), l.PatchDir())

	l.OutputRoot = ""
	assert.Equal(t, mods, l.Output())

	require.NoError(t, os.RemoveAll(filepath.Join(mods, patchFolder)))
	assert.Empty(t, l.PatchDir())
}

func TestLayoutValidate(t *testing.T) {
	mods := makeMods(t, "ModA")
	missing := filepath.Join(t.TempDir(), "missing")

	var verr *models.ValidationError

	_, err := Layout{ModsRoot: missing, DataDir: mods}.Sources()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "paths.mods_root", verr.Field)

	_, err = Layout{ModsRoot: mods, DataDir: missing}.Sources()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "paths.data_dir", verr.Field)
}
