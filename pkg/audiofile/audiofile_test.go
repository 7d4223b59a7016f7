package audiofile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromRelative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"SoundAtRoot", "sound/fx/hit.wav", "sound/fx/hit", true},
		{"MusicAtRoot", "music/explore/day01.xwm", "music/explore/day01", true},
		{"Backslashes", `Data\Sound\FX\Hit.WAV`, "sound/fx/hit", true},
		{"NestedSound", "mods/foo/sound/voice/npc.mp3", "sound/voice/npc", true},
		{"EarliestSegmentWins", "music/sound/x.ogg", "music/sound/x", true},
		{"SoundBeforeMusic", "a/sound/b/music/c.ogg", "sound/b/music/c", true},
		{"NoExtension", "sound/fx/hit", "sound/fx/hit", true},
		{"DotInDirectoryOnly", "sound/fx.v2/hit", "sound/fx.v2/hit", true},
		{"SubstringDoesNotMatch", "soundfx/hit.wav", "", false},
		{"SuffixSegmentDoesNotMatch", "mysound/hit.wav", "", false},
		{"NoSegment", "textures/armor.dds", "", false},
		{"Empty", "", "", false},
		{"Whitespace", "   ", "", false},
		{"ParentAfterSegment", `sound\..\..\escaped.wav`, "", false},
		{"ParentInsideKey", "music/a/../../../x.mp3", "", false},
		{"ParentBeforeSegment", "../mods/sound/fx/hit.wav", "sound/fx/hit", true},
		{"DotsInName", "sound/fx/hit..wav", "sound/fx/hit.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyFromRelative(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyFromRelativeIdempotent(t *testing.T) {
	inputs := []string{
		"Sound/FX/Hit.wav",
		"data/MUSIC/Combat/Boss.xwm",
		`x\y\sound\voice\npc\line01.mp3`,
	}

	for _, in := range inputs {
		key, ok := KeyFromRelative(in)
		require.True(t, ok, in)

		again, ok := KeyFromRelative(key)
		require.True(t, ok)
		assert.Equal(t, key, again)

		upper, ok := KeyFromRelative(strings.ToUpper(key))
		require.True(t, ok)
		assert.Equal(t, key, upper)
	}
}

func TestKeyFromAbsolute(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ModA")
	file := filepath.Join(root, "Sound", "FX", "Hit.wav")

	key, ok := KeyFromAbsolute(root, file)
	require.True(t, ok)
	assert.Equal(t, "sound/fx/hit", key)

	_, ok = KeyFromAbsolute("", file)
	assert.False(t, ok)

	_, ok = KeyFromAbsolute(root, filepath.Join(root, "meshes", "a.nif"))
	assert.False(t, ok)
}

func TestIsAudioExtension(t *testing.T) {
	for _, e := range []string{".wav", ".WAV", ".xwm", ".Mp3", ".ogg"} {
		assert.True(t, IsAudioExtension(e), e)
	}
	for _, e := range []string{"", " ", ".flac", "wav", ".bsa"} {
		assert.False(t, IsAudioExtension(e), e)
	}

	assert.True(t, IsAudioFile(`sound\fx\HIT.XWM`))
	assert.False(t, IsAudioFile("sound/fx/hit"))
}

func TestIsArchiveFile(t *testing.T) {
	assert.True(t, IsArchiveFile("Skyrim - Sounds.bsa"))
	assert.True(t, IsArchiveFile("/data/Mod - Main.BA2"))
	assert.False(t, IsArchiveFile("plugin.esp"))
	assert.False(t, IsArchiveFile("bsa"))
}

func TestExtensionOrDefault(t *testing.T) {
	assert.Equal(t, ".xwm", ExtensionOrDefault("sound/fx/hit.xwm", DefaultExtension))
	assert.Equal(t, ".wav", ExtensionOrDefault("sound/fx/hit", DefaultExtension))
	assert.Equal(t, ".wav", ExtensionOrDefault(`sound.dir\hit`, DefaultExtension))
}

func TestNormalizeArchivePath(t *testing.T) {
	assert.Equal(t, "sound/fx/hit.wav", NormalizeArchivePath(`\sound\fx\hit.wav`))
	assert.Equal(t, "sound/fx/hit.wav", NormalizeArchivePath("//sound/fx/hit.wav"))
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("out", "sound/fx/hit", ".xwm")
	assert.Equal(t, filepath.Join("out", "sound", "fx", "hit.xwm"), got)
}
