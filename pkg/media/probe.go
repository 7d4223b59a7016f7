// Package media prepares variants for listening: it extracts archive
// entries to disk, transcodes them to WAV and probes their durations with
// ffmpeg.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/sdejongh/audiopatch/pkg/process"
)

// minDuration is the shortest duration reported as known
const minDuration = 0.01

var durationPattern = regexp.MustCompile(`(?i)Duration:\s(?P<h>\d+):(?P<m>\d+):(?P<s>\d+(\.\d+)?)`)

// ToolError reports an external tool that exited with a non-zero code
type ToolError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d.\n\nSTDOUT:\n%s\n\nSTDERR:\n%s",
		e.Tool, e.ExitCode, strings.TrimSpace(e.Stdout), strings.TrimSpace(e.Stderr))
}

// ResolveFFmpeg returns configured when set, an ffmpeg next to the running
// executable when present, and the bare command name otherwise
func ResolveFFmpeg(configured string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}

	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if exe, err := os.Executable(); err == nil {
		local := filepath.Join(filepath.Dir(exe), name)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local
		}
	}
	return name
}

// ParseDuration extracts the first "Duration: h:mm:ss.ff" from ffmpeg output.
// Durations of 0.01s or less count as unknown.
func ParseDuration(text string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	h, err := strconv.Atoi(m[durationPattern.SubexpIndex("h")])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.Atoi(m[durationPattern.SubexpIndex("m")])
	if err != nil {
		return 0, false
	}
	s, err := strconv.ParseFloat(m[durationPattern.SubexpIndex("s")], 64)
	if err != nil {
		return 0, false
	}

	total := float64(h*3600+mins*60) + s
	if total <= minDuration {
		return 0, false
	}
	return total, true
}

// Prober reads durations from the banner ffmpeg prints for an input file
type Prober struct {
	FFmpeg string
	Runner process.Runner
}

// NewProber creates a prober running ffmpeg through runner
func NewProber(ffmpeg string, runner process.Runner) *Prober {
	if runner == nil {
		runner = process.NewExecRunner()
	}
	return &Prober{FFmpeg: ResolveFFmpeg(ffmpeg), Runner: runner}
}

// Duration returns the duration of the file at path in seconds.
// Any failure (missing file, tool not found, unparsable output) yields false.
func (p *Prober) Duration(ctx context.Context, path string) (float64, bool) {
	if strings.TrimSpace(path) == "" {
		return 0, false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return 0, false
	}

	// ffmpeg exits non-zero when given no output, the banner is still printed
	result, err := p.Runner.Run(ctx, p.FFmpeg, "-i", path)
	if err != nil {
		return 0, false
	}
	return ParseDuration(result.Stderr + "\n" + result.Stdout)
}
