package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/audiopatch/pkg/archive"
	"github.com/sdejongh/audiopatch/pkg/archive/archivetest"
	"github.com/sdejongh/audiopatch/pkg/cache"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/process"
)

var mod = &models.Source{Name: "ModA", Priority: 1}

const ffmpegBanner = `Input #0, wav, from 'hit.wav':
  Duration: 00:01:02.50, bitrate: 1411 kb/s
At least one output file must be specified`

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"Banner", ffmpegBanner, 62.5, true},
		{"Hours", "duration: 01:00:03", 3603, true},
		{"TooShort", "Duration: 00:00:00.01,", 0, false},
		{"NotAvailable", "Duration: N/A, bitrate: N/A", 0, false},
		{"Empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDuration(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProberDuration(t *testing.T) {
	file := filepath.Join(t.TempDir(), "hit.wav")
	require.NoError(t, os.WriteFile(file, []byte("RIFF"), 0644))

	var gotArgs []string
	runner := process.RunnerFunc(func(ctx context.Context, exe string, args ...string) (process.Result, error) {
		gotArgs = args
		return process.Result{ExitCode: 1, Stderr: ffmpegBanner}, nil
	})
	p := NewProber("/opt/ffmpeg", runner)

	d, ok := p.Duration(context.Background(), file)
	require.True(t, ok)
	assert.InDelta(t, 62.5, d, 1e-9)
	assert.Equal(t, []string{"-i", file}, gotArgs)
	assert.Equal(t, "/opt/ffmpeg", p.FFmpeg)

	_, ok = p.Duration(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.False(t, ok)
}

func newCache(t *testing.T) *cache.FileCache {
	t.Helper()
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestExtractorSourceFile(t *testing.T) {
	dir := t.TempDir()
	bsa := filepath.Join(dir, "ModA.bsa")
	require.NoError(t, archivetest.WriteBSA(bsa, []archivetest.File{
		{Path: `sound\fx\hit.xwm`, Data: []byte("xwm data")},
	}, archivetest.BSAOptions{Compress: true}))

	ex := NewExtractor(newCache(t))
	ctx := context.Background()

	t.Run("Loose", func(t *testing.T) {
		v := models.NewLooseVariant(mod, "/mods/ModA/sound/hit.wav", "sound/hit")
		got, err := ex.SourceFile(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, v.OriginPath, got)
	})

	t.Run("ArchiveEntryCached", func(t *testing.T) {
		v := models.NewArchiveVariant(mod, `sound\fx\hit.xwm`, "sound/fx/hit", bsa)

		first, err := ex.SourceFile(ctx, v)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(first, "_hit.xwm"))

		data, err := os.ReadFile(first)
		require.NoError(t, err)
		assert.Equal(t, "xwm data", string(data))

		upper := models.NewArchiveVariant(mod, `SOUND\FX\HIT.XWM`, "sound/fx/hit", bsa)
		second, err := ex.SourceFile(ctx, upper)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, ex.Cache.Len())
	})

	t.Run("MissingEntry", func(t *testing.T) {
		v := models.NewArchiveVariant(mod, `sound\fx\gone.wav`, "sound/fx/gone", bsa)
		_, err := ex.SourceFile(ctx, v)

		var notFound *archive.EntryNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("NoArchivePath", func(t *testing.T) {
		v := models.NewArchiveVariant(mod, `sound\fx\hit.xwm`, "sound/fx/hit", "")
		_, err := ex.SourceFile(ctx, v)
		assert.Error(t, err)
	})
}

func TestTranscoderToWAV(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "hit.wav")
	xwm := filepath.Join(dir, "hit.xwm")
	require.NoError(t, os.WriteFile(wav, []byte("RIFF"), 0644))
	require.NoError(t, os.WriteFile(xwm, []byte("XWMA"), 0644))

	calls := 0
	runner := process.RunnerFunc(func(ctx context.Context, exe string, args ...string) (process.Result, error) {
		calls++
		require.Len(t, args, 4)
		assert.Equal(t, []string{"-y", "-i", xwm}, args[:3])
		return process.Result{}, os.WriteFile(args[3], []byte("RIFF"), 0644)
	})
	tr := NewTranscoder("ffmpeg", runner, newCache(t))
	ctx := context.Background()

	got, err := tr.ToWAV(ctx, wav)
	require.NoError(t, err)
	assert.Equal(t, wav, got)
	assert.Equal(t, 0, calls)

	out, err := tr.ToWAV(ctx, xwm)
	require.NoError(t, err)
	assert.Equal(t, ".wav", filepath.Ext(out))
	assert.FileExists(t, out)

	again, err := tr.ToWAV(ctx, xwm)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Equal(t, 1, calls)

	_, err = tr.ToWAV(ctx, filepath.Join(dir, "missing.mp3"))
	assert.Error(t, err)
}

func TestTranscoderFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "town.mp3")
	require.NoError(t, os.WriteFile(src, []byte("ID3"), 0644))

	runner := process.RunnerFunc(func(ctx context.Context, exe string, args ...string) (process.Result, error) {
		return process.Result{ExitCode: 1, Stderr: "Invalid data found"}, nil
	})
	_, err := NewTranscoder("ffmpeg", runner, newCache(t)).ToWAV(context.Background(), src)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Contains(t, err.Error(), "STDERR:\nInvalid data found")
}

type originFiles struct{}

func (originFiles) SourceFile(ctx context.Context, v *models.Variant) (string, error) {
	return v.OriginPath, nil
}

type proberFunc func(ctx context.Context, path string) (float64, bool)

func (f proberFunc) Duration(ctx context.Context, path string) (float64, bool) {
	return f(ctx, path)
}

func TestDurationWorker(t *testing.T) {
	t.Run("FillsMissingDurations", func(t *testing.T) {
		known := models.NewLooseVariant(mod, "/a.wav", "sound/a")
		known.SetDuration(9)
		unknown := models.NewLooseVariant(mod, "/b.wav", "sound/b")
		failing := models.NewLooseVariant(mod, "/c.wav", "sound/c")

		var mu sync.Mutex
		var probed []string
		prober := proberFunc(func(ctx context.Context, path string) (float64, bool) {
			mu.Lock()
			probed = append(probed, path)
			mu.Unlock()
			return 3, path != "/c.wav"
		})

		dispatcher := NewLoopDispatcher(4)
		w := NewDurationWorker(originFiles{}, prober, dispatcher, nil)
		w.Start(context.Background(), []*models.Variant{known, unknown, failing})
		w.Wait()
		dispatcher.Close()

		assert.Equal(t, []string{"/b.wav", "/c.wav"}, probed)
		assert.Equal(t, 9.0, *known.Duration)
		require.True(t, unknown.HasDuration())
		assert.Equal(t, 3.0, *unknown.Duration)
		assert.False(t, failing.HasDuration())
	})

	t.Run("NewRunSupersedesOld", func(t *testing.T) {
		slow := models.NewLooseVariant(mod, "/slow.wav", "sound/slow")
		fast := models.NewLooseVariant(mod, "/fast.wav", "sound/fast")

		started := make(chan struct{})
		prober := proberFunc(func(ctx context.Context, path string) (float64, bool) {
			if path == "/slow.wav" {
				close(started)
				<-ctx.Done()
				return 1, true
			}
			return 2, true
		})

		w := NewDurationWorker(originFiles{}, prober, nil, nil)
		w.Start(context.Background(), []*models.Variant{slow})
		<-started
		w.Start(context.Background(), []*models.Variant{fast})
		w.Wait()

		assert.False(t, slow.HasDuration())
		require.True(t, fast.HasDuration())
		assert.Equal(t, 2.0, *fast.Duration)
	})

	t.Run("Stop", func(t *testing.T) {
		v := models.NewLooseVariant(mod, "/v.wav", "sound/v")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w := NewDurationWorker(originFiles{}, proberFunc(func(ctx context.Context, path string) (float64, bool) {
			return 1, true
		}), nil, nil)
		w.Start(ctx, []*models.Variant{v})
		w.Stop()
		w.Wait()

		assert.False(t, v.HasDuration())
	})
}

func TestLoopDispatcherRunsInOrder(t *testing.T) {
	d := NewLoopDispatcher(0)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		d.Dispatch(func() { got = append(got, i) })
	}
	d.Close()
	d.Dispatch(func() { got = append(got, 99) })

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}
