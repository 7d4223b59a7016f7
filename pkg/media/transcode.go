package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdejongh/audiopatch/pkg/cache"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/process"
)

// Transcoder converts audio files to WAV with ffmpeg
type Transcoder struct {
	FFmpeg string
	Runner process.Runner
	Cache  *cache.FileCache
}

// NewTranscoder creates a transcoder writing its output into c
func NewTranscoder(ffmpeg string, runner process.Runner, c *cache.FileCache) *Transcoder {
	if runner == nil {
		runner = process.NewExecRunner()
	}
	return &Transcoder{FFmpeg: ResolveFFmpeg(ffmpeg), Runner: runner, Cache: c}
}

// ToWAV returns path unchanged for .wav files and a cached transcoded copy
// for everything else
func (t *Transcoder) ToWAV(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("source file not found: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return path, nil
	}

	key := "wav|" + strings.ToLower(path)
	return t.Cache.GetOrCreate(key, func() (string, error) {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out := t.Cache.PathFor(key, stem+".wav")

		result, err := t.Runner.Run(ctx, t.FFmpeg, "-y", "-i", path, out)
		if err != nil {
			return "", fmt.Errorf("failed to start ffmpeg: %w", err)
		}
		if _, statErr := os.Stat(out); !result.Success() || statErr != nil {
			return "", &ToolError{Tool: "ffmpeg", ExitCode: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
		}
		return out, nil
	})
}

// Playable returns a WAV file with the content of v, extracting and
// transcoding as needed
func Playable(ctx context.Context, ex *Extractor, tr *Transcoder, v *models.Variant) (string, error) {
	src, err := ex.SourceFile(ctx, v)
	if err != nil {
		return "", err
	}
	return tr.ToWAV(ctx, src)
}
